package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"oip/rfmengine/common/entity"
)

// ErrSegmentNotFound 分群不存在
var ErrSegmentNotFound = errors.New("segment not found")

// memberBatchSize 成员写入批大小
const memberBatchSize = 500

// SegmentDAO segments / segment_members / rfm_state 表访问
type SegmentDAO struct {
	db *gorm.DB
}

// NewSegmentDAO 创建 SegmentDAO 实例
func NewSegmentDAO(db *gorm.DB) *SegmentDAO {
	return &SegmentDAO{db: db}
}

// SeedSegments 按 slug 幂等写入分群模板
// 已存在的分群只刷新名称、描述与建议动作，保留运营修改过的区间、优先级与启用状态
func (dao *SegmentDAO) SeedSegments(ctx context.Context, segments []entity.Segment) error {
	if len(segments) == 0 {
		return nil
	}
	err := dao.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description", "suggested_action", "updated_at"}),
		}).
		Create(&segments).Error
	if err != nil {
		return fmt.Errorf("failed to seed segments: %w", err)
	}
	return nil
}

// ListSegments 按优先级读取分群；activeOnly 为 true 时只返回启用的分群
func (dao *SegmentDAO) ListSegments(ctx context.Context, activeOnly bool) ([]entity.Segment, error) {
	q := dao.db.WithContext(ctx).Order("priority ASC, id ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}

	var segments []entity.Segment
	if err := q.Find(&segments).Error; err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	return segments, nil
}

// GetSegmentBySlug 按 slug 读取分群
func (dao *SegmentDAO) GetSegmentBySlug(ctx context.Context, slug string) (*entity.Segment, error) {
	var seg entity.Segment
	err := dao.db.WithContext(ctx).Where("slug = ?", slug).First(&seg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSegmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get segment %s: %w", slug, err)
	}
	return &seg, nil
}

// InsertMembers 写入新 generation 的成员；在 PublishGeneration 之前读者不可见
func (dao *SegmentDAO) InsertMembers(ctx context.Context, members []entity.SegmentMember) error {
	if len(members) == 0 {
		return nil
	}
	if err := dao.db.WithContext(ctx).CreateInBatches(&members, memberBatchSize).Error; err != nil {
		return fmt.Errorf("failed to insert %d segment members: %w", len(members), err)
	}
	return nil
}

// SegmentStatsUpdate 单个分群的统计刷新
type SegmentStatsUpdate struct {
	SegmentID     int64
	CustomerCount int64
	TotalRevenue  int64
	AvgOrderValue int64
}

// PublishGeneration 在同一事务内切换当前 generation 指针并刷新分群统计
func (dao *SegmentDAO) PublishGeneration(ctx context.Context, generation string, stats []SegmentStatsUpdate, at time.Time) error {
	return dao.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state := entity.RFMState{
			StateKey:   entity.StateKeyMemberGeneration,
			StateValue: generation,
			UpdatedAt:  at,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "state_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"state_value", "updated_at"}),
		}).Create(&state).Error
		if err != nil {
			return fmt.Errorf("failed to swap member generation: %w", err)
		}

		for _, s := range stats {
			err := tx.Model(&entity.Segment{}).
				Where("id = ?", s.SegmentID).
				Updates(map[string]interface{}{
					"customer_count":   s.CustomerCount,
					"total_revenue":    s.TotalRevenue,
					"avg_order_value":  s.AvgOrderValue,
					"stats_updated_at": at,
				}).Error
			if err != nil {
				return fmt.Errorf("failed to update stats of segment %d: %w", s.SegmentID, err)
			}
		}
		return nil
	})
}

// CurrentGeneration 当前生效的成员 generation，尚未发布过时返回空串
func (dao *SegmentDAO) CurrentGeneration(ctx context.Context) (string, error) {
	var state entity.RFMState
	err := dao.db.WithContext(ctx).Where("state_key = ?", entity.StateKeyMemberGeneration).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read member generation: %w", err)
	}
	return state.StateValue, nil
}

// DeleteStaleMembers 清理非当前 generation 的成员（包括中断运行留下的残余）
func (dao *SegmentDAO) DeleteStaleMembers(ctx context.Context) (int64, error) {
	db := dao.db.WithContext(ctx)
	res := db.Where("generation <> (?)", dao.currentGenerationQuery(db)).Delete(&entity.SegmentMember{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete stale segment members: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ListMembers 分页读取分群在当前 generation 下的成员
func (dao *SegmentDAO) ListMembers(ctx context.Context, segmentID int64, limit, offset int) ([]entity.SegmentMember, int64, error) {
	db := dao.db.WithContext(ctx)
	scope := func() *gorm.DB {
		return db.Model(&entity.SegmentMember{}).
			Where("generation = (?)", dao.currentGenerationQuery(db)).
			Where("segment_id = ?", segmentID)
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count segment members: %w", err)
	}

	var members []entity.SegmentMember
	err := scope().Order("customer_id ASC").Limit(limit).Offset(offset).Find(&members).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list segment members: %w", err)
	}
	return members, total, nil
}

// CurrentMembers 当前 generation 的全部成员，按客户 ID 排序
func (dao *SegmentDAO) CurrentMembers(ctx context.Context) ([]entity.SegmentMember, error) {
	db := dao.db.WithContext(ctx)
	var members []entity.SegmentMember
	err := db.Where("generation = (?)", dao.currentGenerationQuery(db)).
		Order("customer_id ASC").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list current segment members: %w", err)
	}
	return members, nil
}

// currentGenerationQuery generation 指针子查询，读者与清理共用
func (dao *SegmentDAO) currentGenerationQuery(db *gorm.DB) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Model(&entity.RFMState{}).
		Select("state_value").
		Where("state_key = ?", entity.StateKeyMemberGeneration)
}
