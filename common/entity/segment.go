package entity

import "time"

// Segment 营销分群（区间由运营配置，统计字段每次计算刷新）
type Segment struct {
	ID              int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Slug            string `gorm:"column:slug;type:varchar(64);uniqueIndex:uk_slug;not null"`
	Name            string `gorm:"column:name;type:varchar(128);not null"`
	Description     string `gorm:"column:description;type:varchar(512);not null;default:''"`
	SuggestedAction string `gorm:"column:suggested_action;type:varchar(512);not null;default:''"`
	Priority        int    `gorm:"column:priority;not null;index:idx_priority"`
	IsActive        bool   `gorm:"column:is_active;not null;default:true"`

	// 区间过滤（NULL 表示不限）
	RecencyMin   *int64 `gorm:"column:recency_min"`
	RecencyMax   *int64 `gorm:"column:recency_max"`
	FrequencyMin *int64 `gorm:"column:frequency_min"`
	FrequencyMax *int64 `gorm:"column:frequency_max"`
	MonetaryMin  *int64 `gorm:"column:monetary_min"`
	MonetaryMax  *int64 `gorm:"column:monetary_max"`

	// 统计
	CustomerCount  int64      `gorm:"column:customer_count;not null;default:0"`
	TotalRevenue   int64      `gorm:"column:total_revenue;not null;default:0"`
	AvgOrderValue  int64      `gorm:"column:avg_order_value;not null;default:0"`
	StatsUpdatedAt *time.Time `gorm:"column:stats_updated_at"`

	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName 指定表名
func (Segment) TableName() string {
	return "segments"
}

// SegmentMember 分群成员（按 generation 整批写入，读者只看当前 generation）
type SegmentMember struct {
	Generation string `gorm:"column:generation;type:varchar(26);primaryKey;index:idx_generation_segment,priority:1"`
	CustomerID int64  `gorm:"column:customer_id;primaryKey;autoIncrement:false"`
	SegmentID  int64  `gorm:"column:segment_id;not null;index:idx_generation_segment,priority:2"`

	TotalOrders        int64 `gorm:"column:total_orders;not null"`
	TotalSpentCents    int64 `gorm:"column:total_spent_cents;not null"`
	AvgOrderCents      int64 `gorm:"column:avg_order_cents;not null"`
	DaysSinceLastOrder int64 `gorm:"column:days_since_last_order;not null"`

	RecencyScore   int       `gorm:"column:recency_score;not null"`
	FrequencyScore int       `gorm:"column:frequency_score;not null"`
	MonetaryScore  int       `gorm:"column:monetary_score;not null"`
	RFMScore       string    `gorm:"column:rfm_score;type:varchar(3);not null"`
	LifecycleStage string    `gorm:"column:lifecycle_stage;type:varchar(16);not null"`
	ChurnRisk      float64   `gorm:"column:churn_risk;not null"`
	PredictedLTV   int64     `gorm:"column:predicted_ltv;not null"`
	CalculatedAt   time.Time `gorm:"column:calculated_at;not null"`
}

// TableName 指定表名
func (SegmentMember) TableName() string {
	return "segment_members"
}
