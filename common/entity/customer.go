package entity

import "time"

// Customer 上游客户（只读，由交易系统维护）
type Customer struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;type:varchar(255);not null"`
	Email     string    `gorm:"column:email;type:varchar(255);uniqueIndex:uk_email;not null"`
	IsStaff   bool      `gorm:"column:is_staff;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`

	Orders []Order `gorm:"foreignKey:CustomerID"`
}

// TableName 指定表名
func (Customer) TableName() string {
	return "customers"
}
