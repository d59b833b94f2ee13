package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"oip/rfmengine/common/entity"
)

// RunDAO rfm_calculation_runs 表访问
type RunDAO struct {
	db *gorm.DB
}

// NewRunDAO 创建 RunDAO 实例
func NewRunDAO(db *gorm.DB) *RunDAO {
	return &RunDAO{db: db}
}

// CreateRun 记录一次计算开始
func (dao *RunDAO) CreateRun(ctx context.Context, run *entity.CalculationRun) error {
	if err := dao.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to create run %s: %w", run.RunID, err)
	}
	return nil
}

// SaveRun 覆盖写入计算结果
func (dao *RunDAO) SaveRun(ctx context.Context, run *entity.CalculationRun) error {
	if err := dao.db.WithContext(ctx).Save(run).Error; err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.RunID, err)
	}
	return nil
}

// LatestRun 最近一次计算，没有记录时返回 nil
func (dao *RunDAO) LatestRun(ctx context.Context) (*entity.CalculationRun, error) {
	var run entity.CalculationRun
	err := dao.db.WithContext(ctx).Order("started_at DESC, run_id DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return &run, nil
}
