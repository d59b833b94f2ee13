package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/atomic"

	"oip/rfmengine/common/model"
	"oip/rfmengine/internal/business"
	"oip/rfmengine/internal/domains/common"
	"oip/rfmengine/pkg/logger"
)

// Scheduler 定时全量重算（标准 5 段 cron 表达式，按 UTC 计算）
type Scheduler struct {
	spec       string
	schedule   cron.Schedule
	calculator common.Calculator
	runTimeout time.Duration
	logger     logger.Logger
	closing    *atomic.Bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewScheduler 解析 cron 表达式
func NewScheduler(spec string, calculator common.Calculator, runTimeout time.Duration, log logger.Logger) (*Scheduler, error) {
	spec = strings.TrimSpace(spec)
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler spec %q: %w", spec, err)
	}
	return &Scheduler{
		spec:       spec,
		schedule:   schedule,
		calculator: calculator,
		runTimeout: runTimeout,
		logger:     log,
		closing:    atomic.NewBool(false),
	}, nil
}

// Next 下一次触发时间
func (s *Scheduler) Next(now time.Time) time.Time {
	return s.schedule.Next(now.UTC())
}

// Start 启动调度协程
func (s *Scheduler) Start(parentCtx context.Context) {
	ctx, cancel := context.WithCancel(parentCtx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Infof(ctx, "[Scheduler] Started, cron: %s", s.spec)

		for {
			now := time.Now()
			next := s.Next(now)
			s.logger.Infof(ctx, "[Scheduler] Next calculation at %s (in %s)",
				next.Format(time.RFC3339), next.Sub(now).Round(time.Second))

			timer := time.NewTimer(next.Sub(now))
			select {
			case <-ctx.Done():
				timer.Stop()
				s.logger.Infof(ctx, "[Scheduler] Context cancelled, exiting")
				return
			case <-timer.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce 触发一次计算；其他实例正在计算时跳过
func (s *Scheduler) RunOnce(ctx context.Context) {
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}
	ctx = logger.WithActionType(ctx, model.ActionRFMCalculate)

	run, err := s.calculator.Calculate(ctx, business.CalculateRequest{Trigger: model.TriggerScheduler})
	switch {
	case errors.Is(err, business.ErrCalculationInProgress):
		s.logger.Infof(ctx, "[Scheduler] Calculation already in progress, skipping")
	case err != nil && run != nil:
		s.logger.Errorf(ctx, "[Scheduler] Calculation %s finished with status %s: %v", run.RunID, run.Status, err)
	case err != nil:
		s.logger.Errorf(ctx, "[Scheduler] Calculation failed: %v", err)
	default:
		s.logger.Infof(ctx, "[Scheduler] Calculation %s finished with status %s, calculated=%d",
			run.RunID, run.Status, run.Calculated)
	}
}

// Stop 停止调度并等待进行中的计算结束
func (s *Scheduler) Stop() {
	if !s.closing.CAS(false, true) {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Infof(context.Background(), "[Scheduler] Stopped")
}
