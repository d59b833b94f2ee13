package seed

import (
	"context"
	"encoding/json"

	"oip/rfmengine/internal/domains/common"
	"oip/rfmengine/internal/domains/common/job"
	"oip/rfmengine/internal/domains/common/response"
	"oip/rfmengine/pkg/errorutil"
)

// SeedHandler 分群模板写入 Handler
type SeedHandler struct {
	ctx    context.Context
	meta   *job.Meta
	seeder common.Seeder
}

// NewSeedHandler segment_seed 没有业务数据
func NewSeedHandler(ctx context.Context, meta *job.Meta, _ json.RawMessage, deps *common.Deps) (common.HandlerServ, error) {
	if deps == nil || deps.Seeder == nil {
		return nil, errorutil.NonRetriable("segment seeder is not configured")
	}
	return &SeedHandler{ctx: ctx, meta: meta, seeder: deps.Seeder}, nil
}

// GetProcess 写入默认分群
func (h *SeedHandler) GetProcess() *response.Response {
	result := &response.SeedResult{}
	n, err := h.seeder.SeedSegments(h.ctx)
	result.Segments = n

	resp := &response.Response{}
	resp.WrapResponse(result, h.meta, err)
	return resp
}
