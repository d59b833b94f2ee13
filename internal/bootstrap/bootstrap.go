package bootstrap

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"oip/rfmengine/internal/business"
	"oip/rfmengine/internal/framework"
	"oip/rfmengine/pkg/config"
	"oip/rfmengine/pkg/infra/mysql"
	"oip/rfmengine/pkg/infra/redis"
	"oip/rfmengine/pkg/logger"
)

// App 进程共享的基础设施与业务服务
type App struct {
	Cfg   *config.Config
	Log   *logger.ZapLogger
	DB    *gorm.DB
	Redis *goredis.Client // 未配置 Redis 时为 nil

	Calculation *business.CalculationService
	Segments    *business.SegmentService
	Query       *business.QueryService
}

// Options 启动选项
type Options struct {
	Service      string // 日志与 Sentry 中的服务名
	SeedSegments bool   // 启动时写入内置分群模板
}

// NewLogger 按配置创建日志实例
func NewLogger(cfg *config.Config, service string) (*logger.ZapLogger, error) {
	return logger.New(logger.Options{
		Level:     cfg.App.LogLevel,
		SentryDSN: cfg.App.SentryDSN,
		Env:       cfg.App.Env,
		Service:   service,
	})
}

// New 依次连接 MySQL、Redis 并组装业务服务，任一步失败即返回
func New(ctx context.Context, cfg *config.Config, log *logger.ZapLogger, opts Options) (*App, error) {
	app := &App{Cfg: cfg, Log: log}

	chain := framework.NewPreProcessor().
		Then("mysql", app.openMySQL).
		Then("redis", app.openRedis).
		Then("services", app.buildServices)
	if opts.SeedSegments {
		chain.Then("seed", app.seedSegments)
	}

	if err := chain.Run(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) openMySQL(ctx context.Context) error {
	db, err := mysql.Open(ctx, a.Cfg.MySQL)
	if err != nil {
		return err
	}
	a.DB = db
	a.Log.Infof(ctx, "[Bootstrap] MySQL connected")
	return nil
}

func (a *App) openRedis(ctx context.Context) error {
	if !a.Cfg.Redis.Enabled() {
		a.Log.Warnf(ctx, "[Bootstrap] Redis not configured, using in-process lock and skipping notifications")
		return nil
	}
	client, err := redis.NewClient(ctx, a.Cfg.Redis)
	if err != nil {
		return err
	}
	a.Redis = client
	a.Log.Infof(ctx, "[Bootstrap] Redis connected: %s", a.Cfg.Redis.Addr)
	return nil
}

func (a *App) buildServices(_ context.Context) error {
	feed := mysql.NewFeedDAO(a.DB)
	scores := mysql.NewRFMDAO(a.DB)
	segments := mysql.NewSegmentDAO(a.DB)
	runs := mysql.NewRunDAO(a.DB)

	deps := business.Dependencies{
		Feed:     feed,
		Scores:   scores,
		Segments: segments,
		Runs:     runs,
		Locker:   business.NewLocalLocker(),
	}
	if a.Redis != nil {
		deps.Locker = redis.NewLock(a.Redis, a.Cfg.RFM.LockKey, a.Cfg.RFM.LockTTL)
		deps.Notifier = redis.NewPubSub(a.Redis)
	}

	a.Calculation = business.NewCalculationService(deps, business.CalculationOptions{
		PageSize:      a.Cfg.RFM.PageSize,
		BatchSize:     a.Cfg.RFM.BatchSize,
		Concurrency:   a.Cfg.RFM.Concurrency,
		LockTTL:       a.Cfg.RFM.LockTTL,
		NotifyChannel: a.Cfg.RFM.NotifyChannel,
	}, a.Log)
	a.Segments = business.NewSegmentService(segments, a.Log)
	a.Query = business.NewQueryService(feed, scores, segments, runs)
	return nil
}

func (a *App) seedSegments(ctx context.Context) error {
	n, err := a.Segments.SeedSegments(ctx)
	if err != nil {
		return fmt.Errorf("seed segments failed: %w", err)
	}
	a.Log.Infof(ctx, "[Bootstrap] Segment templates ready: %d", n)
	return nil
}

// Close 释放连接
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = mysql.Close(a.DB)
	}
}
