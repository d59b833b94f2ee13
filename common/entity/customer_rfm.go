package entity

import "time"

// CustomerRFM 客户 RFM 评分（每个客户一行，每次计算整行覆盖）
type CustomerRFM struct {
	CustomerID int64 `gorm:"column:customer_id;primaryKey;autoIncrement:false"`

	// 原始指标
	TotalOrders        int64 `gorm:"column:total_orders;not null"`
	TotalSpentCents    int64 `gorm:"column:total_spent_cents;not null"`
	AvgOrderCents      int64 `gorm:"column:avg_order_cents;not null"`
	DaysSinceLastOrder int64 `gorm:"column:days_since_last_order;not null"`

	// 评分
	RecencyScore   int    `gorm:"column:recency_score;not null"`
	FrequencyScore int    `gorm:"column:frequency_score;not null"`
	MonetaryScore  int    `gorm:"column:monetary_score;not null"`
	RFMScore       string `gorm:"column:rfm_score;type:varchar(3);not null;index:idx_rfm_score"`

	RecencyPercentile   float64 `gorm:"column:recency_percentile;not null"`
	FrequencyPercentile float64 `gorm:"column:frequency_percentile;not null"`
	MonetaryPercentile  float64 `gorm:"column:monetary_percentile;not null"`

	// 派生结果
	LifecycleStage string    `gorm:"column:lifecycle_stage;type:varchar(16);not null;index:idx_lifecycle_stage"`
	ChurnRisk      float64   `gorm:"column:churn_risk;not null"`
	PredictedLTV   int64     `gorm:"column:predicted_ltv;not null"`
	CalculatedAt   time.Time `gorm:"column:calculated_at;not null"`
}

// TableName 指定表名
func (CustomerRFM) TableName() string {
	return "customer_rfm"
}
