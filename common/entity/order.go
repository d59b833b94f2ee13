package entity

import "time"

// Order 上游订单（只读，由交易系统维护）
type Order struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	CustomerID int64     `gorm:"column:customer_id;not null;index:idx_customer_placed"`
	Status     string    `gorm:"column:status;type:varchar(32);not null"`
	TotalCents int64     `gorm:"column:total_cents;not null"`
	PlacedAt   time.Time `gorm:"column:placed_at;not null;index:idx_customer_placed"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// 不计入 RFM 指标的订单状态
const (
	OrderStatusCancelled = "cancelled"
	OrderStatusRefunded  = "refunded"
)
