package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"oip/rfmengine/internal/domains"
	"oip/rfmengine/internal/domains/common"
	"oip/rfmengine/internal/framework"
	"oip/rfmengine/pkg/config"
	"oip/rfmengine/pkg/lmstfy"
	"oip/rfmengine/pkg/logger"
)

// Manager 接口
type Manager interface {
	Start() error
	Shutdown()
}

// Queue lmstfy 能力集合：拉取/确认任务，并投递回调
type Queue interface {
	framework.MessageSource
	domains.CallbackPublisher
}

// ManagerInstance 管理全部队列 Worker 及定时调度
type ManagerInstance struct {
	ctx        context.Context
	cfg        *config.Config
	queue      Queue
	deps       *common.Deps
	workers    []Worker
	scheduler  *Scheduler
	closing    *atomic.Bool
	shutdownCh chan struct{}
	wg         sync.WaitGroup
	logger     logger.Logger
}

// NewManagerInstance 创建 Manager，使用配置中的 lmstfy 连接
func NewManagerInstance(cfg *config.Config, deps *common.Deps, log logger.Logger) (Manager, error) {
	client, err := lmstfy.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create lmstfy client: %w", err)
	}
	return newManager(cfg, client, deps, log)
}

func newManager(cfg *config.Config, queue Queue, deps *common.Deps, log logger.Logger) (*ManagerInstance, error) {
	ctx := context.Background()

	m := &ManagerInstance{
		ctx:        ctx,
		cfg:        cfg,
		queue:      queue,
		deps:       deps,
		closing:    atomic.NewBool(false),
		shutdownCh: make(chan struct{}),
		logger:     log,
	}

	if cfg.Scheduler.Enabled {
		scheduler, err := NewScheduler(cfg.Scheduler.Spec, deps.Calculator, cfg.RFM.RunTimeout, log)
		if err != nil {
			return nil, err
		}
		m.scheduler = scheduler
	}

	if err := m.loadWorkers(); err != nil {
		return nil, fmt.Errorf("failed to load workers: %w", err)
	}
	log.Infof(ctx, "[Manager] Initialized with %d workers, scheduler enabled: %v", len(m.workers), m.scheduler != nil)
	return m, nil
}

// Start 启动全部 Worker，阻塞到 Shutdown 完成
func (m *ManagerInstance) Start() error {
	m.logger.Infof(m.ctx, "[Manager] Starting...")

	for _, worker := range m.workers {
		w := worker
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			w.Start()
		}()
		m.logger.Infof(m.ctx, "[Manager] Worker started: %s", w.GetName())
	}

	if m.scheduler != nil {
		m.scheduler.Start(m.ctx)
	}

	m.logger.Infof(m.ctx, "[Manager] Start success")
	<-m.shutdownCh
	return nil
}

// Shutdown 优雅退出：先停调度，再逐个关闭 Worker
func (m *ManagerInstance) Shutdown() {
	if !m.closing.CAS(false, true) {
		return
	}
	m.logger.Infof(m.ctx, "[Manager] Began to close")

	if m.scheduler != nil {
		m.scheduler.Stop()
	}
	for _, worker := range m.workers {
		m.logger.Infof(m.ctx, "[Manager] Shutting down worker: %s", worker.GetName())
		worker.Shutdown()
	}
	m.wg.Wait()
	close(m.shutdownCh)

	m.logger.Infof(m.ctx, "[Manager] Shutdown complete")
}

// loadWorkers 每个配置项对应一个队列 Worker，回调投递到该 Worker 的回调队列
func (m *ManagerInstance) loadWorkers() error {
	for _, workerCfg := range m.cfg.Workers {
		proc := domains.GetProcess(m.logger, m.deps, domains.Callback{
			Publisher: m.queue,
			Queue:     workerCfg.CallbackQueue,
		})
		m.workers = append(m.workers, NewWorkerInstance(m.ctx, workerCfg, m.cfg.RFM.RunTimeout, m.queue, proc, m.logger))
	}
	if len(m.workers) == 0 {
		return fmt.Errorf("no workers configured")
	}
	return nil
}
