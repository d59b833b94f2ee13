package model

// CalculationCompleted RFM 计算完成通知（Redis Pub/Sub）
type CalculationCompleted struct {
	RunID           string `json:"run_id"`
	AsOf            string `json:"as_of"`
	Status          string `json:"status"`
	Calculated      int    `json:"calculated"`
	Failed          int    `json:"failed"`
	MembersAssigned int    `json:"members_assigned"`
	Generation      string `json:"generation"`
	Timestamp       int64  `json:"timestamp"`
}
