package request

import (
	"time"

	"oip/rfmengine/common/model"
)

// CalculateRequest 触发 RFM 计算请求
type CalculateRequest struct {
	AsOf  string `json:"as_of" binding:"omitempty,datetime=2006-01-02" example:"2026-03-01"`
	Async bool   `json:"async" example:"false"` // true 时投递到 worker 队列，立即返回 202
}

// AsOfTime 解析评估基准日，为空时返回零值（由服务取当天）
func (r *CalculateRequest) AsOfTime() (time.Time, error) {
	if r.AsOf == "" {
		return time.Time{}, nil
	}
	return time.Parse(model.AsOfLayout, r.AsOf)
}

// ToJobData 转换为 worker 任务数据
func (r *CalculateRequest) ToJobData() *model.RFMCalculateData {
	return &model.RFMCalculateData{
		AsOf:    r.AsOf,
		Trigger: model.TriggerAPI,
	}
}

// SeedRequest 初始化分群模板请求
type SeedRequest struct {
	Async bool `json:"async" example:"false"`
}

// SegmentListQuery 分群列表查询参数
type SegmentListQuery struct {
	ActiveOnly bool `form:"active_only" example:"true"`
}

// MembersQuery 分群成员分页参数
type MembersQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=500" example:"50"`
	Offset int `form:"offset" binding:"omitempty,min=0" example:"0"`
}
