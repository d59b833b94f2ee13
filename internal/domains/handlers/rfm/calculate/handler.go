package calculate

import (
	"context"
	"encoding/json"
	"time"

	"oip/rfmengine/common/model"
	"oip/rfmengine/internal/business"
	"oip/rfmengine/internal/domains/common"
	"oip/rfmengine/internal/domains/common/job"
	"oip/rfmengine/internal/domains/common/response"
	"oip/rfmengine/pkg/errorutil"
)

// CalculateHandler 全量 RFM 计算 Handler
type CalculateHandler struct {
	ctx        context.Context
	meta       *job.Meta
	req        business.CalculateRequest
	calculator common.Calculator
}

// NewCalculateHandler 解析 rfm_calculate 业务数据
func NewCalculateHandler(ctx context.Context, meta *job.Meta, payload json.RawMessage, deps *common.Deps) (common.HandlerServ, error) {
	if deps == nil || deps.Calculator == nil {
		return nil, errorutil.NonRetriable("rfm calculator is not configured")
	}

	var data model.RFMCalculateData
	if len(payload) > 0 && string(payload) != "null" {
		if err := json.Unmarshal(payload, &data); err != nil {
			return nil, errorutil.NonRetriableWithDetails("invalid rfm_calculate payload", err.Error())
		}
	}

	req := business.CalculateRequest{Trigger: data.Trigger}
	if req.Trigger == "" {
		req.Trigger = model.TriggerQueue
	}
	if data.AsOf != "" {
		asOf, err := time.Parse(model.AsOfLayout, data.AsOf)
		if err != nil {
			return nil, errorutil.NonRetriableWithDetails("as_of must be YYYY-MM-DD", err.Error())
		}
		req.AsOf = asOf.UTC()
	}

	return &CalculateHandler{
		ctx:        ctx,
		meta:       meta,
		req:        req,
		calculator: deps.Calculator,
	}, nil
}

// GetProcess 执行计算
func (h *CalculateHandler) GetProcess() *response.Response {
	result := response.NewCalculationResult()

	run, err := h.calculator.Calculate(h.ctx, h.req)
	result.Run = run

	resp := &response.Response{}
	resp.WrapResponse(result, h.meta, err)
	return resp
}
