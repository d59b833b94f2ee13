package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"oip/rfmengine/common/model"
	"oip/rfmengine/internal/framework"
	"oip/rfmengine/pkg/logger"
)

// CallbackHandler 回调处理
type CallbackHandler interface {
	HandleCallback(ctx context.Context, cb *model.RFMJobCallback) error
}

// CallbackConsumer 回调消费者
// 从回调队列拉取 worker 的处理结果，写入任务状态后 ACK
type CallbackConsumer struct {
	source  framework.MessageSource
	handler CallbackHandler
	cfg     *Config
	logger  logger.Logger
}

// Config 消费者配置
type Config struct {
	QueueName    string        // 队列名称
	Timeout      time.Duration // 拉取超时
	TTR          time.Duration // Time-To-Run
	PollInterval time.Duration // 出错后的等待间隔
}

// NewCallbackConsumer 创建回调消费者实例
func NewCallbackConsumer(source framework.MessageSource, handler CallbackHandler, cfg *Config, log logger.Logger) *CallbackConsumer {
	return &CallbackConsumer{
		source:  source,
		handler: handler,
		cfg:     cfg,
		logger:  log,
	}
}

// Start 启动消费循环，ctx 取消后返回
func (c *CallbackConsumer) Start(ctx context.Context) error {
	c.logger.Infof(ctx, "[CallbackConsumer] Started, queue: %s", c.cfg.QueueName)

	for {
		if err := ctx.Err(); err != nil {
			c.logger.Infof(ctx, "[CallbackConsumer] Stopped")
			return err
		}
		if err := c.consumeOne(ctx); err != nil {
			c.logger.Warnf(ctx, "[CallbackConsumer] Failed to consume message: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(c.cfg.PollInterval):
			}
		}
	}
}

// consumeOne 消费一条消息
func (c *CallbackConsumer) consumeOne(ctx context.Context) error {
	msg, err := c.source.Consume(c.cfg.QueueName, c.cfg.Timeout, c.cfg.TTR)
	if err != nil {
		return fmt.Errorf("consume message failed: %w", err)
	}
	if msg == nil {
		return nil
	}

	cb, err := parseCallback(msg.Data)
	if err != nil {
		// 格式错误的消息重试也无法处理
		_ = c.source.Ack(c.cfg.QueueName, msg.ID)
		return fmt.Errorf("job %s: %w", msg.ID, err)
	}

	ctx = logger.WithTraceID(ctx, cb.RequestID)
	if err := c.handler.HandleCallback(ctx, cb); err != nil {
		// 不 ACK，TTR 到期后重新投递
		return fmt.Errorf("job %s: %w", msg.ID, err)
	}

	if err := c.source.Ack(c.cfg.QueueName, msg.ID); err != nil {
		return fmt.Errorf("ack job %s failed: %w", msg.ID, err)
	}

	c.logger.Infof(ctx, "[CallbackConsumer] Callback processed: action_type=%s status=%s", cb.ActionType, cb.Status)
	return nil
}

func parseCallback(data []byte) (*model.RFMJobCallback, error) {
	var cb model.RFMJobCallback
	if err := json.Unmarshal(data, &cb); err != nil {
		return nil, fmt.Errorf("unmarshal callback failed: %w", err)
	}
	if cb.RequestID == "" {
		return nil, fmt.Errorf("request_id is required")
	}
	if cb.Status == "" {
		return nil, fmt.Errorf("status is required")
	}
	return &cb, nil
}
