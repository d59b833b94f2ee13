package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"oip/rfmengine/common/entity"
)

// ErrCustomerRFMNotFound 客户尚无评分记录
var ErrCustomerRFMNotFound = errors.New("customer rfm not found")

// RFMDAO customer_rfm 表访问
type RFMDAO struct {
	db *gorm.DB
}

// NewRFMDAO 创建 RFMDAO 实例
func NewRFMDAO(db *gorm.DB) *RFMDAO {
	return &RFMDAO{db: db}
}

// UpsertScores 批量写入评分，已存在的客户整行覆盖
func (dao *RFMDAO) UpsertScores(ctx context.Context, rows []entity.CustomerRFM) error {
	if len(rows) == 0 {
		return nil
	}
	err := dao.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}},
			UpdateAll: true,
		}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %d customer rfm rows: %w", len(rows), err)
	}
	return nil
}

// GetByCustomerID 读取单个客户评分
func (dao *RFMDAO) GetByCustomerID(ctx context.Context, customerID int64) (*entity.CustomerRFM, error) {
	var row entity.CustomerRFM
	err := dao.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCustomerRFMNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer rfm %d: %w", customerID, err)
	}
	return &row, nil
}

// RFMSummary 评分汇总
type RFMSummary struct {
	Analyzed        int64   `gorm:"column:analyzed"`
	AvgRecency      float64 `gorm:"column:avg_recency"`
	AvgFrequency    float64 `gorm:"column:avg_frequency"`
	AvgMonetary     float64 `gorm:"column:avg_monetary"`
	AvgChurnRisk    float64 `gorm:"column:avg_churn_risk"`
	AvgPredictedLTV float64 `gorm:"column:avg_predicted_ltv"`
}

// Summary 全量评分的数量与均值
func (dao *RFMDAO) Summary(ctx context.Context) (*RFMSummary, error) {
	var s RFMSummary
	err := dao.db.WithContext(ctx).
		Model(&entity.CustomerRFM{}).
		Select(`COUNT(*) AS analyzed,
			COALESCE(AVG(recency_score), 0) AS avg_recency,
			COALESCE(AVG(frequency_score), 0) AS avg_frequency,
			COALESCE(AVG(monetary_score), 0) AS avg_monetary,
			COALESCE(AVG(churn_risk), 0) AS avg_churn_risk,
			COALESCE(AVG(predicted_ltv), 0) AS avg_predicted_ltv`).
		Scan(&s).Error
	if err != nil {
		return nil, fmt.Errorf("failed to summarize customer rfm: %w", err)
	}
	return &s, nil
}

// LifecycleCounts 各生命周期阶段的客户数
func (dao *RFMDAO) LifecycleCounts(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Stage     string `gorm:"column:lifecycle_stage"`
		Customers int64  `gorm:"column:customers"`
	}
	err := dao.db.WithContext(ctx).
		Model(&entity.CustomerRFM{}).
		Select("lifecycle_stage, COUNT(*) AS customers").
		Group("lifecycle_stage").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count lifecycle stages: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Stage] = r.Customers
	}
	return counts, nil
}

// DistributionRow 按 RFM 编码分组的统计
type DistributionRow struct {
	RFMScore        string  `gorm:"column:rfm_score" json:"rfm_score"`
	Customers       int64   `gorm:"column:customers" json:"customers"`
	TotalSpentCents int64   `gorm:"column:total_spent_cents" json:"total_spent_cents"`
	AvgChurnRisk    float64 `gorm:"column:avg_churn_risk" json:"avg_churn_risk"`
}

// Distribution 按 RFM 编码分组，编码降序
func (dao *RFMDAO) Distribution(ctx context.Context) ([]DistributionRow, error) {
	var rows []DistributionRow
	err := dao.db.WithContext(ctx).
		Model(&entity.CustomerRFM{}).
		Select(`rfm_score,
			COUNT(*) AS customers,
			COALESCE(SUM(total_spent_cents), 0) AS total_spent_cents,
			COALESCE(AVG(churn_risk), 0) AS avg_churn_risk`).
		Group("rfm_score").
		Order("rfm_score DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query rfm distribution: %w", err)
	}
	return rows, nil
}
