package worker

import (
	"context"
	"time"

	"oip/rfmengine/internal/framework"
	"oip/rfmengine/pkg/config"
	"oip/rfmengine/pkg/lmstfyx"
	"oip/rfmengine/pkg/logger"
)

// Worker 接口
type Worker interface {
	Start()
	Shutdown()
	GetName() string
}

// WorkerInstance 一个队列对应一组 Subscriber + Processor，通过 inputChan 衔接
type WorkerInstance struct {
	ctx        context.Context
	name       string
	subscriber *framework.Subscriber
	processor  *framework.Processor
	inputChan  chan *framework.Message
	shutdownCh chan struct{}
	logger     logger.Logger
}

// frameworkConfigs 把 Worker 配置转换为框架配置，任务时限未配置时使用单次计算超时
func frameworkConfigs(cfg config.WorkerConfig, runTimeout time.Duration) (*framework.SubscriberConfig, *framework.ProcessorConfig) {
	sub := framework.SubscriberConfig{
		QueueName:    cfg.QueueName,
		Concurrency:  cfg.Subscriber.Threads,
		Timeout:      cfg.Subscriber.Timeout,
		TTR:          cfg.Subscriber.TTR,
		Rate:         cfg.Subscriber.Rate,
		ErrorBackoff: cfg.Subscriber.ErrorBackoff,
	}
	proc := framework.ProcessorConfig{
		Concurrency: cfg.Processor.Threads,
		BufferSize:  cfg.Processor.BufferSize,
		Timeout:     cfg.Processor.Timeout,
	}
	return sub.Normalize(), proc.Normalize(runTimeout)
}

// NewWorkerInstance 创建 Worker 实例
func NewWorkerInstance(
	ctx context.Context,
	cfg config.WorkerConfig,
	runTimeout time.Duration,
	source framework.MessageSource,
	proc lmstfyx.Proc,
	log logger.Logger,
) *WorkerInstance {
	subCfg, procCfg := frameworkConfigs(cfg, runTimeout)
	return &WorkerInstance{
		ctx:        ctx,
		name:       cfg.Name,
		subscriber: framework.NewSubscriber(subCfg, source, log),
		processor:  framework.NewProcessor(procCfg, proc, source, log),
		inputChan:  make(chan *framework.Message, procCfg.BufferSize),
		shutdownCh: make(chan struct{}),
		logger:     log,
	}
}

// Start 启动 Worker，阻塞到 Shutdown 完成
func (w *WorkerInstance) Start() {
	w.logger.Infof(w.ctx, "[Worker] %s started", w.name)

	// 先启动 Processor，拉到的任务不会在 channel 中等待
	_ = w.processor.Start(w.ctx, w.inputChan)
	_ = w.subscriber.Start(w.ctx, w.inputChan)

	<-w.shutdownCh
}

// Shutdown 停止拉取后排空 Processor；正在执行的计算会跑完再退出
func (w *WorkerInstance) Shutdown() {
	w.logger.Infof(w.ctx, "[Worker] %s began to close", w.name)

	w.subscriber.Stop()
	w.subscriber.Wait()

	w.processor.SignalShutdown()
	w.processor.Wait()

	close(w.shutdownCh)
	w.logger.Infof(w.ctx, "[Worker] %s shutdown complete", w.name)
}

// GetName 获取 Worker 名称
func (w *WorkerInstance) GetName() string {
	return w.name
}
