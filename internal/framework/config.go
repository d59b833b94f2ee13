package framework

import "time"

// 未配置时的默认值
const (
	defaultConsumeTimeout = 3 * time.Second
	defaultTTR            = 30 * time.Minute
)

// SubscriberConfig Subscriber 配置
type SubscriberConfig struct {
	QueueName    string
	Concurrency  int           // 拉取协程数
	Timeout      time.Duration // 单次拉取的阻塞时长
	TTR          time.Duration // 未 ACK 的任务在 TTR 后重新投递，需大于一次全量计算的耗时
	Rate         time.Duration // 两次拉取之间的间隔
	ErrorBackoff time.Duration // 拉取失败后的初始退避
}

// Normalize 填充默认值
func (c SubscriberConfig) Normalize() *SubscriberConfig {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultConsumeTimeout
	}
	if c.TTR <= 0 {
		c.TTR = defaultTTR
	}
	return &c
}

// ProcessorConfig Processor 配置
type ProcessorConfig struct {
	Concurrency int
	BufferSize  int           // inputChan 缓冲
	Timeout     time.Duration // 单个任务的处理时限
}

// Normalize 填充默认值，fallbackTimeout 用于未配置任务时限的情况
func (c ProcessorConfig) Normalize(fallbackTimeout time.Duration) *ProcessorConfig {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.BufferSize < 0 {
		c.BufferSize = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = fallbackTimeout
	}
	return &c
}
