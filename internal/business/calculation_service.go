package business

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/oklog/ulid/v2"
	"go.uber.org/atomic"

	"oip/rfmengine/common/entity"
	"oip/rfmengine/common/model"
	"oip/rfmengine/internal/business/rfm"
	"oip/rfmengine/pkg/errorutil"
	"oip/rfmengine/pkg/logger"
)

// ErrCalculationInProgress 已有计算在执行
var ErrCalculationInProgress = errorutil.Conflict("rfm calculation already in progress")

// releaseTimeout 释放锁的最长等待（调用方 ctx 可能已取消）
const releaseTimeout = 5 * time.Second

// ProgressFunc 评分进度回调，done 为已处理客户数
type ProgressFunc func(done, total int)

// CalculateRequest 单次计算参数
type CalculateRequest struct {
	AsOf     time.Time // 为空时取当天 UTC 零点
	Trigger  string
	Progress ProgressFunc
}

// RunResult 单次计算结果
type RunResult struct {
	RunID           string        `json:"run_id"`
	AsOf            time.Time     `json:"as_of"`
	Trigger         string        `json:"trigger"`
	Status          string        `json:"status"`
	Population      int           `json:"population"`
	Calculated      int           `json:"calculated"`
	Failures        []rfm.Failure `json:"failures,omitempty"`
	MembersAssigned int           `json:"members_assigned"`
	Unsegmented     int           `json:"unsegmented"`
	Generation      string        `json:"generation,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at"`
}

// CalculationOptions 计算调优参数
type CalculationOptions struct {
	PageSize      int
	BatchSize     int
	Concurrency   int
	LockTTL       time.Duration // 续约间隔为 LockTTL/3，为 0 时不续约
	NotifyChannel string
}

// Dependencies 计算服务依赖
type Dependencies struct {
	Feed     CustomerFeed
	Scores   ScoreStore
	Segments SegmentStore
	Runs     RunStore
	Locker   Locker
	Notifier Notifier // 可选
}

// CalculationService RFM 全量计算
// 流程：加锁 → 分页读取客户并汇总指标 → 构建百分位索引 → 并发评分落库 → 分群并切换 generation → 记录批次并通知
type CalculationService struct {
	deps Dependencies
	opts CalculationOptions
	log  logger.Logger
	now  func() time.Time
}

// NewCalculationService 创建计算服务
func NewCalculationService(deps Dependencies, opts CalculationOptions, log logger.Logger) *CalculationService {
	if opts.PageSize <= 0 {
		opts.PageSize = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &CalculationService{
		deps: deps,
		opts: opts,
		log:  log,
		now:  time.Now,
	}
}

// DefaultAsOf 当天 UTC 零点
func DefaultAsOf(now time.Time) time.Time {
	return now.UTC().Truncate(24 * time.Hour)
}

// Calculate 执行一次全量计算
// 锁被占用时返回 ErrCalculationInProgress 且不返回结果；其他失败同时返回结果与 *errorutil.Error
func (s *CalculationService) Calculate(ctx context.Context, req CalculateRequest) (*RunResult, error) {
	token, ok, err := s.deps.Locker.TryAcquire(ctx)
	if err != nil {
		return nil, errorutil.Retriable("failed to acquire calculation lock").WithCause(err)
	}
	if !ok {
		return nil, ErrCalculationInProgress
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopLease := s.keepLease(runCtx, cancel, token)
	defer func() {
		stopLease()
		releaseCtx, releaseCancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer releaseCancel()
		if err := s.deps.Locker.Release(releaseCtx, token); err != nil {
			s.log.Warnf(ctx, "[CalculationService] Failed to release calculation lock: %v", err)
		}
	}()

	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = DefaultAsOf(s.now())
	}
	result := &RunResult{
		RunID:     ulid.Make().String(),
		AsOf:      asOf,
		Trigger:   req.Trigger,
		Status:    entity.RunStatusRunning,
		StartedAt: s.now(),
	}
	runCtx = logger.WithRunID(runCtx, result.RunID)

	s.log.Infof(runCtx, "[CalculationService] Starting calculation, as_of=%s trigger=%s",
		asOf.Format(time.RFC3339), req.Trigger)
	var run *entity.CalculationRun
	runErr := s.run(runCtx, req.Progress, result, func() {
		run = s.createRun(runCtx, result)
	})
	if runErr == nil && runCtx.Err() != nil {
		// 续约失败导致的取消
		runErr = runCtx.Err()
	}
	result.FinishedAt = s.now()

	var finalErr error
	switch {
	case runErr != nil:
		result.Status = entity.RunStatusFailed
		finalErr = s.failure(runCtx, runErr)
	case result.Status == entity.RunStatusPartial:
		finalErr = partialError(result)
	}

	// 空客户集不写运行记录；采集阶段就失败的运行在此补建
	if result.Status != entity.RunStatusNoop {
		if run == nil {
			run = s.createRun(context.WithoutCancel(runCtx), result)
		}
		s.saveRun(ctx, run, result, finalErr)
	}
	s.log.Infof(runCtx, "[CalculationService] Calculation finished, status=%s population=%d calculated=%d failed=%d members=%d",
		result.Status, result.Population, result.Calculated, len(result.Failures), result.MembersAssigned)

	if result.Status == entity.RunStatusCompleted || result.Status == entity.RunStatusPartial {
		s.notify(context.WithoutCancel(runCtx), result)
	}
	return result, finalErr
}

// run started 在确认客户集非空后调用一次
func (s *CalculationService) run(ctx context.Context, progress ProgressFunc, result *RunResult, started func()) error {
	metrics, failures, err := s.collect(ctx, result.AsOf)
	if err != nil {
		return err
	}
	result.Population = len(metrics) + len(failures)
	result.Failures = failures

	if result.Population == 0 {
		result.Status = entity.RunStatusNoop
		s.log.Infof(ctx, "[CalculationService] No customers to score")
		return nil
	}
	started()
	if len(metrics) == 0 {
		return errorutil.Invalid("no customer produced valid metrics")
	}

	index, err := s.buildIndex(ctx, metrics)
	if err != nil {
		return err
	}

	scores, persistFailures, err := s.scoreAndPersist(ctx, index, metrics, result.AsOf, progress)
	result.Calculated = len(scores)
	result.Failures = append(result.Failures, persistFailures...)
	sort.SliceStable(result.Failures, func(i, j int) bool {
		return result.Failures[i].CustomerID < result.Failures[j].CustomerID
	})
	if err != nil {
		return err
	}
	if len(scores) == 0 {
		return errorutil.Retriable("no customer score could be persisted")
	}

	if err := s.rebuildSegments(ctx, scores, result); err != nil {
		return err
	}

	if len(result.Failures) > 0 {
		result.Status = entity.RunStatusPartial
	} else {
		result.Status = entity.RunStatusCompleted
	}
	return nil
}

// collect 第一遍：按主键分页读取客户，汇总原始指标
func (s *CalculationService) collect(ctx context.Context, asOf time.Time) ([]rfm.CustomerMetrics, []rfm.Failure, error) {
	var (
		metrics  []rfm.CustomerMetrics
		failures []rfm.Failure
		afterID  int64
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		page, err := s.deps.Feed.ListCustomers(ctx, afterID, s.opts.PageSize)
		if err != nil {
			return nil, nil, errorutil.Retriable("failed to read customers").WithCause(err)
		}
		if len(page) == 0 {
			break
		}

		customers := make([]rfm.Customer, 0, len(page))
		for _, c := range page {
			customers = append(customers, toRFMCustomer(c))
		}
		m, f := rfm.CollectMetrics(customers, asOf)
		metrics = append(metrics, m...)
		failures = append(failures, f...)

		afterID = page[len(page)-1].ID
		if len(page) < s.opts.PageSize {
			break
		}
	}
	return metrics, failures, nil
}

// buildIndex 三个指标的索引互不依赖，并行构建
func (s *CalculationService) buildIndex(ctx context.Context, metrics []rfm.CustomerMetrics) (*rfm.ScoreIndex, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pool := pond.NewPool(3)
	defer pool.StopAndWait()

	index := &rfm.ScoreIndex{}
	group := pool.NewGroup()
	group.Submit(func() {
		index.Recency = rfm.NewPercentileIndex(rfm.Values(metrics, rfm.MetricRecency))
	})
	group.Submit(func() {
		index.Frequency = rfm.NewPercentileIndex(rfm.Values(metrics, rfm.MetricFrequency))
	})
	group.Submit(func() {
		index.Monetary = rfm.NewPercentileIndex(rfm.Values(metrics, rfm.MetricMonetary))
	})
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build percentile index: %w", err)
	}
	return index, nil
}

// scoreAndPersist 第二遍：按批并发评分并落库，返回成功落库的评分（保持客户 ID 顺序）
// 出错时同样返回已落库的部分
func (s *CalculationService) scoreAndPersist(
	ctx context.Context,
	index *rfm.ScoreIndex,
	metrics []rfm.CustomerMetrics,
	asOf time.Time,
	progress ProgressFunc,
) ([]rfm.CustomerScore, []rfm.Failure, error) {
	total := len(metrics)
	scores := make([]rfm.CustomerScore, total)
	persisted := make([]bool, total)
	done := atomic.NewInt64(0)

	var (
		mu       sync.Mutex
		failures []rfm.Failure
	)

	pool := pond.NewPool(s.opts.Concurrency)
	defer pool.StopAndWait()

	// Wait 返回时所有批次均已结束，之后才读取 scores
	group := pool.NewGroup()
	for start := 0; start < total; start += s.opts.BatchSize {
		end := min(start+s.opts.BatchSize, total)
		group.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			rows := make([]entity.CustomerRFM, 0, end-start)
			for i := start; i < end; i++ {
				scores[i] = index.Score(metrics[i], asOf)
				rows = append(rows, toCustomerRFM(scores[i]))
			}

			batchFailures := s.persistBatch(ctx, rows)
			for i := start; i < end; i++ {
				if _, failed := batchFailures[metrics[i].CustomerID]; !failed {
					persisted[i] = true
				}
			}
			if len(batchFailures) > 0 {
				mu.Lock()
				for _, f := range batchFailures {
					failures = append(failures, f)
				}
				mu.Unlock()
			}

			n := done.Add(int64(end - start))
			if progress != nil {
				progress(int(n), total)
			}
		})
	}
	waitErr := group.Wait()

	ok := make([]rfm.CustomerScore, 0, total)
	for i := range scores {
		if persisted[i] {
			ok = append(ok, scores[i])
		}
	}
	if waitErr != nil {
		return ok, failures, fmt.Errorf("scoring task failed: %w", waitErr)
	}
	return ok, failures, ctx.Err()
}

// persistBatch 整批写入失败时逐行重试，定位出错的客户
func (s *CalculationService) persistBatch(ctx context.Context, rows []entity.CustomerRFM) map[int64]rfm.Failure {
	err := s.deps.Scores.UpsertScores(ctx, rows)
	if err == nil {
		return nil
	}
	s.log.Warnf(ctx, "[CalculationService] Batch upsert of %d rows failed, retrying row by row: %v", len(rows), err)

	failures := make(map[int64]rfm.Failure)
	for i := range rows {
		if err := s.deps.Scores.UpsertScores(ctx, rows[i:i+1]); err != nil {
			failures[rows[i].CustomerID] = rfm.Failure{
				CustomerID: rows[i].CustomerID,
				Stage:      rfm.StagePersist,
				Reason:     err.Error(),
			}
		}
	}
	return failures
}

// rebuildSegments 写入新 generation 的成员，事务内切换指针并刷新统计，最后清理旧 generation
func (s *CalculationService) rebuildSegments(ctx context.Context, scores []rfm.CustomerScore, result *RunResult) error {
	segments, err := s.deps.Segments.ListSegments(ctx, false)
	if err != nil {
		return errorutil.Retriable("failed to load segments").WithCause(err)
	}

	active := make([]entity.Segment, 0, len(segments))
	for _, seg := range segments {
		if seg.IsActive {
			active = append(active, seg)
		}
	}
	members, unmatched := rfm.MatchSegments(scores, toSegmentRules(active))
	stats := rfm.AggregateSegmentStats(toSegmentRules(segments), members)

	generation := ulid.Make().String()
	rows := make([]entity.SegmentMember, 0, len(members))
	for _, m := range members {
		rows = append(rows, toSegmentMember(generation, m))
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.deps.Segments.InsertMembers(ctx, rows); err != nil {
		return errorutil.Retriable("failed to write segment members").WithCause(err)
	}

	// 切换前最后一次检查，取消的计算不能替换当前成员
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.deps.Segments.PublishGeneration(ctx, generation, toStatsUpdates(stats), s.now()); err != nil {
		return errorutil.Retriable("failed to publish segment generation").WithCause(err)
	}

	result.Generation = generation
	result.MembersAssigned = len(members)
	result.Unsegmented = unmatched

	deleted, err := s.deps.Segments.DeleteStaleMembers(context.WithoutCancel(ctx))
	if err != nil {
		s.log.Warnf(ctx, "[CalculationService] Failed to delete stale segment members: %v", err)
	} else {
		s.log.Debugf(ctx, "[CalculationService] Deleted %d stale segment members", deleted)
	}
	return nil
}

// keepLease 按 TTL/3 周期续约，续约失败时取消计算
func (s *CalculationService) keepLease(ctx context.Context, cancel context.CancelFunc, token string) func() {
	interval := s.opts.LockTTL / 3
	if interval <= 0 {
		return func() {}
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.deps.Locker.Refresh(ctx, token); err != nil {
					s.log.Errorf(ctx, "[CalculationService] Lost calculation lock, cancelling: %v", err)
					cancel()
					return
				}
			}
		}
	}()

	return func() {
		close(stop)
		wg.Wait()
	}
}

// failure 将运行错误统一为 *errorutil.Error
func (s *CalculationService) failure(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.log.Warnf(ctx, "[CalculationService] Calculation cancelled: %v", err)
		return errorutil.Retriable("rfm calculation cancelled").WithCause(err)
	}
	s.log.Errorf(ctx, "[CalculationService] Calculation failed: %v", err)
	return errorutil.Wrap(err)
}

// partialError 存在落库失败的客户时可重试
func partialError(result *RunResult) error {
	e := errorutil.Partial(fmt.Sprintf("rfm calculation partially failed: %d of %d customers",
		len(result.Failures), result.Population))
	e.Retryable = false
	for _, f := range result.Failures {
		if f.Stage == rfm.StagePersist {
			e.Retryable = true
			break
		}
	}
	return e
}

func (s *CalculationService) createRun(ctx context.Context, result *RunResult) *entity.CalculationRun {
	if s.deps.Runs == nil {
		return nil
	}
	run := &entity.CalculationRun{
		RunID:     result.RunID,
		AsOf:      result.AsOf,
		Trigger:   result.Trigger,
		Status:    entity.RunStatusRunning,
		StartedAt: result.StartedAt,
	}
	if err := s.deps.Runs.CreateRun(ctx, run); err != nil {
		s.log.Warnf(ctx, "[CalculationService] Failed to record run start: %v", err)
		return nil
	}
	return run
}

func (s *CalculationService) saveRun(ctx context.Context, run *entity.CalculationRun, result *RunResult, runErr error) {
	if run == nil {
		return
	}
	finishedAt := result.FinishedAt
	run.Status = result.Status
	run.Population = int64(result.Population)
	run.Calculated = int64(result.Calculated)
	run.Failed = int64(len(result.Failures))
	run.MembersAssigned = int64(result.MembersAssigned)
	run.Unsegmented = int64(result.Unsegmented)
	run.Generation = result.Generation
	run.FinishedAt = &finishedAt
	if runErr != nil {
		run.ErrorMessage = truncate(runErr.Error(), 1024)
	}
	if len(result.Failures) > 0 {
		if raw, err := json.Marshal(result.Failures); err == nil {
			run.Failures = raw
		}
	}

	saveCtx := logger.WithRunID(context.WithoutCancel(ctx), result.RunID)
	if err := s.deps.Runs.SaveRun(saveCtx, run); err != nil {
		s.log.Warnf(saveCtx, "[CalculationService] Failed to record run result: %v", err)
	}
}

func (s *CalculationService) notify(ctx context.Context, result *RunResult) {
	if s.deps.Notifier == nil || s.opts.NotifyChannel == "" {
		return
	}
	event := &model.CalculationCompleted{
		RunID:           result.RunID,
		AsOf:            result.AsOf.Format(model.AsOfLayout),
		Status:          result.Status,
		Calculated:      result.Calculated,
		Failed:          len(result.Failures),
		MembersAssigned: result.MembersAssigned,
		Generation:      result.Generation,
		Timestamp:       s.now().Unix(),
	}
	if err := s.deps.Notifier.PublishCalculationComplete(ctx, s.opts.NotifyChannel, event); err != nil {
		s.log.Warnf(ctx, "[CalculationService] Failed to publish completion event: %v", err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
