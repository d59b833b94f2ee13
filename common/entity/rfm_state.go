package entity

import "time"

// RFMState 引擎状态键值表（当前成员 generation 指针等）
type RFMState struct {
	StateKey   string    `gorm:"column:state_key;type:varchar(64);primaryKey"`
	StateValue string    `gorm:"column:state_value;type:varchar(255);not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

// TableName 指定表名
func (RFMState) TableName() string {
	return "rfm_state"
}

// StateKeyMemberGeneration 当前生效的 segment_members generation
const StateKeyMemberGeneration = "segment_members.generation"
