package rfm

import (
	"context"

	"oip/rfmengine/internal/business"
	"oip/rfmengine/pkg/infra/mysql"
	"oip/rfmengine/pkg/logger"
)

// Querier RFM 读接口
type Querier interface {
	Overview(ctx context.Context) (*business.Overview, error)
	Distribution(ctx context.Context) ([]mysql.DistributionRow, error)
	Customer(ctx context.Context, customerID int64) (*business.CustomerRFMView, error)
}

// Calculator 同步计算
type Calculator interface {
	Calculate(ctx context.Context, req business.CalculateRequest) (*business.RunResult, error)
}

// JobEnqueuer 异步投递
type JobEnqueuer interface {
	Enqueue(ctx context.Context, actionType string, data interface{}) (string, error)
}

// RFMHandler RFM HTTP 处理器
type RFMHandler struct {
	querier    Querier
	calculator Calculator
	jobs       JobEnqueuer // 未配置 lmstfy 时为 nil
	log        logger.Logger
}

// NewRFMHandler 创建 RFM 处理器实例
func NewRFMHandler(querier Querier, calculator Calculator, jobs JobEnqueuer, log logger.Logger) *RFMHandler {
	return &RFMHandler{
		querier:    querier,
		calculator: calculator,
		jobs:       jobs,
		log:        log,
	}
}
