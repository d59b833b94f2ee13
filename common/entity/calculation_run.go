package entity

import (
	"time"

	"gorm.io/datatypes"
)

// CalculationRun RFM 计算批次记录
type CalculationRun struct {
	RunID           string         `gorm:"column:run_id;type:varchar(26);primaryKey"`
	AsOf            time.Time      `gorm:"column:as_of;not null"`
	Trigger         string         `gorm:"column:trigger_source;type:varchar(32);not null"`
	Status          string         `gorm:"column:status;type:varchar(16);not null;index:idx_status"`
	Population      int64          `gorm:"column:population;not null;default:0"`
	Calculated      int64          `gorm:"column:calculated;not null;default:0"`
	Failed          int64          `gorm:"column:failed;not null;default:0"`
	MembersAssigned int64          `gorm:"column:members_assigned;not null;default:0"`
	Unsegmented     int64          `gorm:"column:unsegmented;not null;default:0"`
	Generation      string         `gorm:"column:generation;type:varchar(26);not null;default:''"`
	Failures        datatypes.JSON `gorm:"column:failures;type:json"`
	ErrorMessage    string         `gorm:"column:error_message;type:varchar(1024);not null;default:''"`
	StartedAt       time.Time      `gorm:"column:started_at;not null;index:idx_started_at"`
	FinishedAt      *time.Time     `gorm:"column:finished_at"`
}

// TableName 指定表名
func (CalculationRun) TableName() string {
	return "rfm_calculation_runs"
}

// 计算批次状态
const (
	RunStatusRunning   = "RUNNING"
	RunStatusCompleted = "COMPLETED"
	RunStatusPartial   = "PARTIAL"
	RunStatusNoop      = "NOOP"
	RunStatusFailed    = "FAILED"
)
