package common

import (
	"context"
	"encoding/json"

	"oip/rfmengine/internal/business"
	"oip/rfmengine/internal/domains/common/job"
	"oip/rfmengine/internal/domains/common/response"
)

// Calculator 全量 RFM 计算
type Calculator interface {
	Calculate(ctx context.Context, req business.CalculateRequest) (*business.RunResult, error)
}

// Seeder 分群模板写入
type Seeder interface {
	SeedSegments(ctx context.Context) (int, error)
}

// Deps Handler 依赖（显式注入，不经由 Context 传递）
type Deps struct {
	Calculator Calculator
	Seeder     Seeder
}

// HandlerServProc Handler 构造函数类型
type HandlerServProc func(ctx context.Context, meta *job.Meta, payload json.RawMessage, deps *Deps) (HandlerServ, error)

// HandlerServ Handler 接口
type HandlerServ interface {
	GetProcess() *response.Response
}
