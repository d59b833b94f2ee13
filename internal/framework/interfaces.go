package framework

import (
	"context"
	"time"
)

// Message 从队列拉取的一条任务
type Message struct {
	ID    string
	Queue string
	Data  []byte // 原始 Job JSON
}

// MessageSource 消息源（lmstfy 或测试用的内存队列）
type MessageSource interface {
	// Consume 阻塞拉取，timeout 内没有任务时返回 nil, nil
	Consume(queue string, timeout time.Duration, ttr time.Duration) (*Message, error)

	// Ack 删除任务，不再重投
	Ack(queue string, jobID string) error
}

// Logger 日志接口
type Logger interface {
	Debugf(ctx context.Context, format string, args ...interface{})
	Infof(ctx context.Context, format string, args ...interface{})
	Warnf(ctx context.Context, format string, args ...interface{})
	Errorf(ctx context.Context, format string, args ...interface{})
}

// ProcessorFunc 启动链中的单个步骤
type ProcessorFunc func(ctx context.Context) error
