package main

// @title           RFM Engine API
// @version         1.0
// @description     客户 RFM 评分与分群服务：查询评分、分群成员，触发全量计算
// @BasePath        /api/v1

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"oip/rfmengine/internal/app/consumer"
	"oip/rfmengine/internal/app/domains/services/svjob"
	"oip/rfmengine/internal/app/server/handlers/job"
	"oip/rfmengine/internal/app/server/handlers/rfm"
	"oip/rfmengine/internal/app/server/handlers/segment"
	"oip/rfmengine/internal/app/server/routers"
	"oip/rfmengine/internal/bootstrap"
	"oip/rfmengine/pkg/config"
	"oip/rfmengine/pkg/infra/redis"
	"oip/rfmengine/pkg/lmstfy"
)

var (
	configPath = flag.String("config", "./config/apiserver.yaml", "配置文件路径")
)

func main() {
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}
	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	zapLogger, err := bootstrap.NewLogger(cfg, "rfm-apiserver")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	// 2. 初始化存储与业务服务
	app, err := bootstrap.New(context.Background(), cfg, zapLogger, bootstrap.Options{Service: "rfm-apiserver"})
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}
	defer app.Close()

	// 3. 异步任务（lmstfy 投递 + Redis 状态）与回调消费者
	handlers := routers.Handlers{}
	var callbackConsumer *consumer.CallbackConsumer
	var jobService *svjob.JobService
	if cfg.AsyncEnabled() {
		client, err := lmstfy.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token)
		if err != nil {
			log.Fatalf("Failed to create lmstfy client: %v", err)
		}
		jobService = svjob.NewJobService(client, redis.NewJobStore(app.Redis, cfg.Server.JobTTL), cfg.Server.JobQueue)
		handlers.Job = job.NewJobHandler(jobService)
		callbackConsumer = consumer.NewCallbackConsumer(client, jobService, &consumer.Config{
			QueueName:    cfg.Server.CallbackQueue,
			Timeout:      3 * time.Second,
			TTR:          30 * time.Second,
			PollInterval: time.Second,
		}, zapLogger)
	} else {
		log.Println("Async jobs disabled: lmstfy or redis not configured")
	}

	// jobService 为 nil 时不能作为非 nil 接口传入
	var enqueuer rfm.JobEnqueuer
	if jobService != nil {
		enqueuer = jobService
	}
	handlers.RFM = rfm.NewRFMHandler(app.Query, app.Calculation, enqueuer, zapLogger)
	handlers.Segment = segment.NewSegmentHandler(app.Query, app.Segments, enqueuer, zapLogger)

	// 4. 创建 HTTP Server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      routers.SetupRoutes(handlers, zapLogger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 5. 启动 Consumer（后台 goroutine）
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	consumerErrChan := make(chan error, 1)
	if callbackConsumer != nil {
		go func() {
			log.Printf("Starting callback consumer...")
			consumerErrChan <- callbackConsumer.Start(consumerCtx)
		}()
	}

	// 6. 启动 HTTP Server（后台 goroutine）
	serverErrChan := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	// 7. 优雅停机处理
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Println("Received shutdown signal, gracefully shutting down...")
	case err := <-serverErrChan:
		log.Printf("HTTP server error: %v", err)
	case err := <-consumerErrChan:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Consumer error: %v", err)
		}
	}
	gracefulShutdown(server, cancelConsumer)

	log.Println("Application stopped")
}

// gracefulShutdown 优雅停机
func gracefulShutdown(server *http.Server, cancelConsumer context.CancelFunc) {
	// 1. 停止 Consumer
	log.Println("Stopping consumer...")
	cancelConsumer()

	// 2. 停止 HTTP Server
	log.Println("Stopping HTTP server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	} else {
		log.Println("HTTP server stopped gracefully")
	}
}
