package response

import (
	"encoding/json"
	"time"

	"oip/rfmengine/common/model"
	"oip/rfmengine/internal/domains/common/job"
	"oip/rfmengine/pkg/errorutil"
	"oip/rfmengine/pkg/lmstfyx"
)

// ResultI 业务结果接口
type ResultI interface {
	// Set 设置元数据和错误
	Set(meta *job.Meta, err error)

	// GetStatus 获取状态
	GetStatus() string
}

// Response 统一响应结构
type Response struct {
	Error     *errorutil.Error `json:"error"`
	Result    ResultI          `json:"result"`
	Processed bool             `json:"processed"`
	Meta      *job.Meta        `json:"meta"`
}

// WrapResponse 包装响应
func (r *Response) WrapResponse(result ResultI, meta *job.Meta, err error) {
	result.Set(meta, err)

	r.Processed = err == nil
	r.Meta = meta
	r.Error = errorutil.UnWrapResponse(err)
	r.Result = result
}

// Failed 构造失败响应（Handler 未能创建时使用）
func Failed(meta *job.Meta, err error) *Response {
	return &Response{
		Error: errorutil.UnWrapResponse(err),
		Meta:  meta,
	}
}

// Action 任务处置：成功与部分成功 ACK；可重试错误不 ACK 等待重投；其余错误 Bury
// 部分成功时分群已切换、运行记录已写入，重投只会重算全量，是否重试交给调用方
func (r *Response) Action() lmstfyx.JobRespStatus {
	switch {
	case r.Error == nil, r.Error.Code == errorutil.CodePartial:
		return lmstfyx.JobRespStatusSuccess
	case r.Error.Retryable:
		return lmstfyx.JobRespStatusRelease
	default:
		return lmstfyx.JobRespStatusBury
	}
}

// Callback 构造回调消息
func (r *Response) Callback(at time.Time) model.RFMJobCallback {
	msg := model.RFMJobCallback{
		Status:      model.CallbackStatusSuccess,
		ProcessedAt: at.Unix(),
	}
	if r.Meta != nil {
		msg.RequestID = r.Meta.RequestID
		msg.ActionType = r.Meta.ActionType
	}
	if r.Result != nil {
		if raw, err := json.Marshal(r.Result); err == nil {
			msg.Result = raw
		}
	}
	if r.Error != nil {
		msg.Status = model.CallbackStatusFailed
		if r.Error.Code == errorutil.CodePartial {
			msg.Status = model.CallbackStatusPartial
		}
		msg.Error = r.Error.Message
		msg.Retryable = r.Error.Retryable
	}
	return msg
}
