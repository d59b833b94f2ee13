package response

import (
	"errors"

	"oip/rfmengine/internal/business"
	"oip/rfmengine/internal/domains/common/job"
	"oip/rfmengine/pkg/errorutil"
)

// 结果状态
const (
	StatusSuccess = "SUCCESS"
	StatusPartial = "PARTIAL"
	StatusFailed  = "FAILED"
)

// CalculationResult rfm_calculate 处理结果
type CalculationResult struct {
	RequestID string              `json:"request_id"`
	Status    string              `json:"status"`
	Run       *business.RunResult `json:"run,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// NewCalculationResult 创建计算结果
func NewCalculationResult() *CalculationResult {
	return &CalculationResult{}
}

// Set 设置元数据和错误
// PARTIAL 运行同样返回 error，但结果仍然有效
func (r *CalculationResult) Set(meta *job.Meta, err error) {
	if meta != nil {
		r.RequestID = meta.RequestID
	}
	if err != nil {
		r.Status = StatusFailed
		var e *errorutil.Error
		if errors.As(err, &e) && e.Code == errorutil.CodePartial {
			r.Status = StatusPartial
		}
		r.Error = err.Error()
		return
	}
	r.Status = StatusSuccess
}

// GetStatus 获取状态
func (r *CalculationResult) GetStatus() string {
	return r.Status
}

// SeedResult segment_seed 处理结果
type SeedResult struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	Segments  int    `json:"segments"`
	Error     string `json:"error,omitempty"`
}

// Set 设置元数据和错误
func (r *SeedResult) Set(meta *job.Meta, err error) {
	if meta != nil {
		r.RequestID = meta.RequestID
	}
	if err != nil {
		r.Status = StatusFailed
		r.Error = err.Error()
		return
	}
	r.Status = StatusSuccess
}

// GetStatus 获取状态
func (r *SeedResult) GetStatus() string {
	return r.Status
}
