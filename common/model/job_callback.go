package model

import "encoding/json"

// RFMJobCallback 任务回调消息
// worker 处理完成后写入回调队列
type RFMJobCallback struct {
	RequestID   string          `json:"request_id"`       // 对应请求的 request_id（链路追踪）
	ActionType  string          `json:"action_type"`      // 任务类型
	Status      string          `json:"status"`           // SUCCESS / PARTIAL / FAILED
	Result      json.RawMessage `json:"result,omitempty"` // 处理结果
	Error       string          `json:"error,omitempty"`  // 错误信息（失败时返回）
	Retryable   bool            `json:"retryable"`        // 是否建议重试
	ProcessedAt int64           `json:"processed_at"`     // 处理时间戳（Unix timestamp）
}

// 回调状态常量
const (
	CallbackStatusSuccess = "SUCCESS"
	CallbackStatusPartial = "PARTIAL"
	CallbackStatusFailed  = "FAILED"
)
