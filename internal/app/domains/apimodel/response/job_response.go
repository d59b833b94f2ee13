package response

import (
	"encoding/json"
	"time"

	"oip/rfmengine/pkg/infra/redis"
)

// JobResponse 异步任务状态
type JobResponse struct {
	RequestID   string          `json:"request_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	ActionType  string          `json:"action_type" example:"rfm_calculate"`
	Status      string          `json:"status" example:"PENDING"`
	Result      json.RawMessage `json:"result,omitempty" swaggertype:"object"`
	Error       string          `json:"error,omitempty"`
	Retryable   bool            `json:"retryable"`
	EnqueuedAt  *time.Time      `json:"enqueued_at,omitempty"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
}

// FromJobStatus 从任务状态转换
func FromJobStatus(s *redis.JobStatus) *JobResponse {
	resp := &JobResponse{
		RequestID:  s.RequestID,
		ActionType: s.ActionType,
		Status:     s.Status,
		Result:     s.Result,
		Error:      s.Error,
		Retryable:  s.Retryable,
	}
	if s.EnqueuedAt > 0 {
		t := time.Unix(s.EnqueuedAt, 0).UTC()
		resp.EnqueuedAt = &t
	}
	if s.ProcessedAt > 0 {
		t := time.Unix(s.ProcessedAt, 0).UTC()
		resp.ProcessedAt = &t
	}
	return resp
}
