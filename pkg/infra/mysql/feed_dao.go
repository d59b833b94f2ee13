package mysql

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"oip/rfmengine/common/entity"
)

// FeedDAO 上游客户/订单只读访问
type FeedDAO struct {
	db *gorm.DB
}

// NewFeedDAO 创建 FeedDAO 实例
func NewFeedDAO(db *gorm.DB) *FeedDAO {
	return &FeedDAO{db: db}
}

// ListCustomers 按 ID 游标分页读取非员工客户，并预加载全部订单
// afterID 为上一页最后一个客户 ID，首页传 0
func (dao *FeedDAO) ListCustomers(ctx context.Context, afterID int64, limit int) ([]entity.Customer, error) {
	var customers []entity.Customer
	err := dao.db.WithContext(ctx).
		Where("is_staff = ?", false).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Preload("Orders", func(db *gorm.DB) *gorm.DB {
			return db.Order("placed_at ASC, id ASC")
		}).
		Find(&customers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list customers after %d: %w", afterID, err)
	}
	return customers, nil
}

// CountCustomers 非员工客户总数
func (dao *FeedDAO) CountCustomers(ctx context.Context) (int64, error) {
	var n int64
	err := dao.db.WithContext(ctx).
		Model(&entity.Customer{}).
		Where("is_staff = ?", false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count customers: %w", err)
	}
	return n, nil
}
