package model

// 任务类型（Job 路由键）
const (
	ActionRFMCalculate = "rfm_calculate"
	ActionSegmentSeed  = "segment_seed"
)

// 计算触发来源
const (
	TriggerAPI       = "api"
	TriggerQueue     = "queue"
	TriggerScheduler = "scheduler"
	TriggerCLI       = "cli"
)

// AsOfLayout as_of 字段的日期格式
const AsOfLayout = "2006-01-02"

// RFMJob 标准化任务消息
// 用于 apiserver / scheduler → worker 的消息传递
type RFMJob struct {
	Payload RFMJobPayload `json:"payload"`
}

// RFMJobPayload Job 负载
type RFMJobPayload struct {
	Data RFMJobData `json:"data"`
}

// RFMJobData Job 数据层
type RFMJobData struct {
	RequestID  string      `json:"request_id"`  // 请求 ID（全链路追踪）
	OrgID      string      `json:"org_id"`      // 组织 ID（固定为 "0"）
	ActionType string      `json:"action_type"` // rfm_calculate / segment_seed
	ID         string      `json:"id"`          // 业务 ID
	Data       interface{} `json:"data"`        // 业务数据
}

// RFMCalculateData rfm_calculate 业务数据
type RFMCalculateData struct {
	AsOf    string `json:"as_of,omitempty"` // 评估基准日 YYYY-MM-DD，为空取当天（UTC）
	Trigger string `json:"trigger,omitempty"`
}

// SegmentSeedData segment_seed 业务数据（无字段）
type SegmentSeedData struct{}

// NewRFMJob 构造标准任务消息
func NewRFMJob(requestID, actionType, id string, data interface{}) *RFMJob {
	return &RFMJob{
		Payload: RFMJobPayload{
			Data: RFMJobData{
				RequestID:  requestID,
				OrgID:      "0",
				ActionType: actionType,
				ID:         id,
				Data:       data,
			},
		},
	}
}
