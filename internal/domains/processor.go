package domains

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitleak/lmstfy/client"
	"github.com/google/uuid"

	"oip/rfmengine/common/model"
	"oip/rfmengine/internal/domains/common"
	"oip/rfmengine/internal/domains/common/job"
	"oip/rfmengine/internal/domains/common/response"
	"oip/rfmengine/pkg/errorutil"
	"oip/rfmengine/pkg/lmstfyx"
	"oip/rfmengine/pkg/logger"
)

// CallbackPublisher 回调消息投递
type CallbackPublisher interface {
	PublishJSON(queue string, v interface{}) (string, error)
}

// Callback 回调配置，Publisher 为 nil 或 Queue 为空时不发送回调
type Callback struct {
	Publisher CallbackPublisher
	Queue     string
}

// GetProcess 返回核心处理函数（注入到 Processor）
func GetProcess(log logger.Logger, deps *common.Deps, callback Callback) lmstfyx.Proc {
	return func(ctx context.Context, lmstfyJob *client.Job) *lmstfyx.JobResp {
		startTime := time.Now()

		// 1. 解析 Job
		meta, payload, err := parseJob(lmstfyJob)
		if err != nil {
			log.Errorf(ctx, "[GetProcess] parseJob failed, job_id=%s: %v", lmstfyJob.ID, err)
			return &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusBury}
		}

		// 2. 注入链路信息
		ctx = logger.WithTraceID(ctx, meta.RequestID)
		ctx = logger.WithActionType(ctx, meta.ActionType)

		log.Infof(ctx, "[GetProcess] Processing job: action_type=%s, request_id=%s, id=%s",
			meta.ActionType, meta.RequestID, meta.ID)

		// 3. 路由到 Handler
		var resp *response.Response
		factory, ok := HandlerMap[meta.ActionType]
		if !ok {
			log.Errorf(ctx, "[GetProcess] handler not found for action_type: %s", meta.ActionType)
			resp = response.Failed(meta, errorutil.NonRetriable("unknown action_type: "+meta.ActionType))
		} else {
			resp = runHandler(ctx, log, factory, meta, payload, deps)
		}

		// 4. 根据结果决定 ACK 方式并回调
		jobResp := doJobReport(ctx, resp, meta, callback, log)

		log.Infof(ctx, "[GetProcess] Processing complete: action=%s, duration=%v", jobResp.Action, time.Since(startTime))
		return jobResp
	}
}

// runHandler 创建并执行 Handler，panic 视为不可重试失败
func runHandler(
	ctx context.Context,
	log logger.Logger,
	factory common.HandlerServProc,
	meta *job.Meta,
	payload json.RawMessage,
	deps *common.Deps,
) (resp *response.Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf(ctx, "[GetProcess] handler panic: %v", r)
			resp = response.Failed(meta, errorutil.NonRetriable(fmt.Sprintf("handler panic: %v", r)))
		}
	}()

	handler, err := factory(ctx, meta, payload, deps)
	if err != nil {
		log.Errorf(ctx, "[GetProcess] handler creation failed: %v", err)
		return response.Failed(meta, err)
	}
	return handler.GetProcess()
}

// parseJob 解析 Job
func parseJob(lmstfyJob *client.Job) (*job.Meta, json.RawMessage, error) {
	var standardJob job.Job
	if err := json.Unmarshal(lmstfyJob.Data, &standardJob); err != nil {
		return nil, nil, fmt.Errorf("json unmarshal failed: %w", err)
	}
	if standardJob.Payload == nil || standardJob.Payload.Data == nil {
		return nil, nil, fmt.Errorf("invalid job structure: payload.data is nil")
	}

	data := standardJob.Payload.Data
	meta := &job.Meta{
		RequestID:  data.RequestID,
		OrgID:      data.OrgID,
		ActionType: data.ActionType,
		ID:         data.ID,
		JobID:      lmstfyJob.ID,
	}
	if meta.RequestID == "" {
		meta.RequestID = uuid.New().String()
	}
	return meta, data.Data, nil
}

// doJobReport 根据 Response 判断 ACK/Bury/Release，最终结果写入回调队列
func doJobReport(
	ctx context.Context,
	resp *response.Response,
	meta *job.Meta,
	callback Callback,
	log logger.Logger,
) *lmstfyx.JobResp {
	if resp.Meta == nil {
		resp.Meta = meta
	}
	action := resp.Action()
	if resp.Error != nil {
		log.Warnf(ctx, "[doJobReport] job failed: code=%d retryable=%v message=%s details=%s",
			resp.Error.Code, resp.Error.Retryable, resp.Error.Message, resp.Error.DevDetails)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		log.Errorf(ctx, "[doJobReport] marshal response failed: %v", err)
		return &lmstfyx.JobResp{Action: lmstfyx.JobRespStatusBury}
	}

	// 重新投递的任务还会再次执行，只在最终结果时回调
	if action != lmstfyx.JobRespStatusRelease {
		publishCallback(ctx, resp.Callback(time.Now()), callback, log)
	}

	return &lmstfyx.JobResp{Action: action, Data: data}
}

func publishCallback(ctx context.Context, msg model.RFMJobCallback, callback Callback, log logger.Logger) {
	if callback.Publisher == nil || callback.Queue == "" {
		return
	}

	jobID, err := callback.Publisher.PublishJSON(callback.Queue, msg)
	if err != nil {
		log.Errorf(ctx, "[doJobReport] publish callback failed: %v", err)
		return
	}
	log.Debugf(ctx, "[doJobReport] callback published: queue=%s job_id=%s", callback.Queue, jobID)
}
