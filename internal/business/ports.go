package business

import (
	"context"
	"time"

	"oip/rfmengine/common/entity"
	"oip/rfmengine/common/model"
	"oip/rfmengine/pkg/infra/mysql"
)

// CustomerFeed 上游客户/订单只读数据源
type CustomerFeed interface {
	ListCustomers(ctx context.Context, afterID int64, limit int) ([]entity.Customer, error)
	CountCustomers(ctx context.Context) (int64, error)
}

// ScoreStore CustomerRFM 存储
type ScoreStore interface {
	UpsertScores(ctx context.Context, rows []entity.CustomerRFM) error
}

// SegmentStore 分群与成员存储
type SegmentStore interface {
	SeedSegments(ctx context.Context, segments []entity.Segment) error
	ListSegments(ctx context.Context, activeOnly bool) ([]entity.Segment, error)
	InsertMembers(ctx context.Context, members []entity.SegmentMember) error
	PublishGeneration(ctx context.Context, generation string, stats []mysql.SegmentStatsUpdate, at time.Time) error
	DeleteStaleMembers(ctx context.Context) (int64, error)
}

// RunStore 计算批次记录
type RunStore interface {
	CreateRun(ctx context.Context, run *entity.CalculationRun) error
	SaveRun(ctx context.Context, run *entity.CalculationRun) error
}

// Notifier 计算完成通知
type Notifier interface {
	PublishCalculationComplete(ctx context.Context, channel string, event *model.CalculationCompleted) error
}

// Locker 全局计算锁（同一时刻只允许一个计算）
type Locker interface {
	TryAcquire(ctx context.Context) (token string, ok bool, err error)
	Refresh(ctx context.Context, token string) error
	Release(ctx context.Context, token string) error
}
