package rfm

import "time"

// NoOrderSentinel 无有效订单客户的 daysSinceLastOrder 取值，排序时视为最不活跃
const NoOrderSentinel = 9999

// 订单状态常量（取消/退款订单不计入指标）
const (
	OrderStatusCancelled = "cancelled"
	OrderStatusRefunded  = "refunded"
)

// LifecycleStage 生命周期阶段
type LifecycleStage string

const (
	StageChampion LifecycleStage = "champion"
	StageActive   LifecycleStage = "active"
	StageNew      LifecycleStage = "new"
	StageAtRisk   LifecycleStage = "at_risk"
	StageChurned  LifecycleStage = "churned"
	StageLost     LifecycleStage = "lost"
)

// AllStages 全部生命周期阶段（用于分布直方图补零）
var AllStages = []LifecycleStage{
	StageChampion, StageActive, StageNew, StageAtRisk, StageChurned, StageLost,
}

// Order 上游订单（只读）
type Order struct {
	ID         int64
	Status     string
	TotalCents int64
	PlacedAt   time.Time
}

// Customer 上游客户及其订单历史（只读）
type Customer struct {
	ID      int64
	IsStaff bool
	Orders  []Order
}

// CustomerMetrics 客户原始指标（每次运行重新计算，不落库）
type CustomerMetrics struct {
	CustomerID         int64
	TotalOrders        int64
	TotalSpentCents    int64
	AvgOrderCents      int64
	DaysSinceLastOrder int64
}

// CustomerScore 单个客户的完整 RFM 结果（对应 CustomerRFM 记录）
type CustomerScore struct {
	CustomerMetrics

	RecencyScore   int
	FrequencyScore int
	MonetaryScore  int
	RFMScore       string

	RecencyPercentile   float64
	FrequencyPercentile float64
	MonetaryPercentile  float64

	LifecycleStage LifecycleStage
	ChurnRisk      float64
	PredictedLTV   int64
	CalculatedAt   time.Time
}

// Failure 单个客户在某阶段的失败记录
type Failure struct {
	CustomerID int64  `json:"customer_id"`
	Stage      string `json:"stage"`
	Reason     string `json:"reason"`
}

// 失败阶段常量
const (
	StageMetrics = "metrics"
	StagePersist = "persist"
)
