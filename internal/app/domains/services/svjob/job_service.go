package svjob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"oip/rfmengine/common/model"
	"oip/rfmengine/pkg/errorutil"
	"oip/rfmengine/pkg/infra/redis"
)

// Publisher 任务投递
type Publisher interface {
	PublishJSON(queue string, v interface{}) (string, error)
}

// Tracker 任务状态存储
type Tracker interface {
	MarkPending(ctx context.Context, requestID, actionType string, at time.Time) error
	SaveCallback(ctx context.Context, cb *model.RFMJobCallback) error
	Get(ctx context.Context, requestID string) (*redis.JobStatus, error)
}

// JobService 异步任务服务
// 职责：投递任务到 worker 队列 → 消费回调并更新状态 → 提供轮询查询
type JobService struct {
	publisher Publisher
	tracker   Tracker
	queue     string
	now       func() time.Time
}

// NewJobService 创建任务服务
func NewJobService(publisher Publisher, tracker Tracker, queue string) *JobService {
	return &JobService{
		publisher: publisher,
		tracker:   tracker,
		queue:     queue,
		now:       time.Now,
	}
}

// Enqueue 投递任务，返回 request_id
func (s *JobService) Enqueue(ctx context.Context, actionType string, data interface{}) (string, error) {
	requestID := uuid.NewString()

	// 先记录状态，回调可能早于此处返回
	if err := s.tracker.MarkPending(ctx, requestID, actionType, s.now()); err != nil {
		return "", errorutil.Retriable("failed to record job").WithCause(err)
	}

	job := model.NewRFMJob(requestID, actionType, "rfm", data)
	if _, err := s.publisher.PublishJSON(s.queue, job); err != nil {
		return "", errorutil.Retriable("failed to enqueue job").WithCause(err)
	}
	return requestID, nil
}

// HandleCallback 处理 worker 回调
// 返回 error 表示需要重试
func (s *JobService) HandleCallback(ctx context.Context, cb *model.RFMJobCallback) error {
	if err := s.tracker.SaveCallback(ctx, cb); err != nil {
		return fmt.Errorf("save job callback failed: %w", err)
	}
	return nil
}

// Get 查询任务状态
func (s *JobService) Get(ctx context.Context, requestID string) (*redis.JobStatus, error) {
	status, err := s.tracker.Get(ctx, requestID)
	if errors.Is(err, redis.ErrJobNotFound) {
		return nil, errorutil.NotFound("job not found: " + requestID).WithCause(err)
	}
	if err != nil {
		return nil, errorutil.Retriable("failed to load job").WithCause(err)
	}
	return status, nil
}
