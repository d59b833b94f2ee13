package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"oip/rfmengine/common/model"
)

// ErrJobNotFound 任务不存在或已过期
var ErrJobNotFound = errors.New("job not found")

// JobStatusPending 已投递、尚未收到回调
const JobStatusPending = "PENDING"

const jobKeyPrefix = "rfm:job:"

// JobStatus 异步任务状态（供轮询）
type JobStatus struct {
	RequestID   string          `json:"request_id"`
	ActionType  string          `json:"action_type"`
	Status      string          `json:"status"` // PENDING / SUCCESS / FAILED
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	Retryable   bool            `json:"retryable"`
	EnqueuedAt  int64           `json:"enqueued_at"`
	ProcessedAt int64           `json:"processed_at,omitempty"`
}

// JobStore 异步任务状态存储，按 request_id 保存，过期自动清理
type JobStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewJobStore 创建任务状态存储
func NewJobStore(client *redis.Client, ttl time.Duration) *JobStore {
	return &JobStore{client: client, ttl: ttl}
}

// MarkPending 记录已投递的任务
func (s *JobStore) MarkPending(ctx context.Context, requestID, actionType string, at time.Time) error {
	return s.save(ctx, &JobStatus{
		RequestID:  requestID,
		ActionType: actionType,
		Status:     JobStatusPending,
		EnqueuedAt: at.Unix(),
	})
}

// SaveCallback 用回调结果覆盖任务状态，保留投递时间
func (s *JobStore) SaveCallback(ctx context.Context, cb *model.RFMJobCallback) error {
	status := &JobStatus{
		RequestID:   cb.RequestID,
		ActionType:  cb.ActionType,
		Status:      cb.Status,
		Result:      cb.Result,
		Error:       cb.Error,
		Retryable:   cb.Retryable,
		ProcessedAt: cb.ProcessedAt,
	}
	prev, err := s.Get(ctx, cb.RequestID)
	switch {
	case err == nil:
		status.EnqueuedAt = prev.EnqueuedAt
	case !errors.Is(err, ErrJobNotFound):
		return err
	}
	return s.save(ctx, status)
}

// Get 读取任务状态
func (s *JobStore) Get(ctx context.Context, requestID string) (*JobStatus, error) {
	raw, err := s.client.Get(ctx, jobKeyPrefix+requestID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", requestID, err)
	}

	var status JobStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", requestID, err)
	}
	return &status, nil
}

func (s *JobStore) save(ctx context.Context, status *JobStatus) error {
	raw, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to encode job %s: %w", status.RequestID, err)
	}
	if err := s.client.Set(ctx, jobKeyPrefix+status.RequestID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save job %s: %w", status.RequestID, err)
	}
	return nil
}
