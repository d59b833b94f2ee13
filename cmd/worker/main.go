package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"oip/rfmengine/internal/bootstrap"
	"oip/rfmengine/internal/domains/common"
	"oip/rfmengine/internal/worker"
	"oip/rfmengine/pkg/config"
)

var (
	configPath = flag.String("config", "./config/worker.yaml", "配置文件路径")
)

func main() {
	flag.Parse()

	log.Println("========================================")
	log.Println("  RFM Worker Starting...")
	log.Println("========================================")

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateWorker(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}
	log.Printf("Config loaded: %s, env: %s, log_level: %s\n", cfg.App.Name, cfg.App.Env, cfg.App.LogLevel)

	// 2. 初始化 Logger
	zapLogger, err := bootstrap.NewLogger(cfg, "rfm-worker")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	// 3. 连接存储并组装服务
	app, err := bootstrap.New(context.Background(), cfg, zapLogger, bootstrap.Options{
		Service:      "rfm-worker",
		SeedSegments: true,
	})
	if err != nil {
		log.Fatalf("Failed to bootstrap: %v", err)
	}
	defer app.Close()

	// 4. 创建 Manager
	mgr, err := worker.NewManagerInstance(cfg, &common.Deps{
		Calculator: app.Calculation,
		Seeder:     app.Segments,
	}, zapLogger)
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}

	// 5. 启动 Manager（goroutine）
	errCh := make(chan error, 1)
	go func() {
		errCh <- mgr.Start()
	}()

	log.Println("Worker started. Press Ctrl+C to shutdown.")

	// 6. 等待退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Println("========================================")
		log.Printf("  Received signal: %v\n", sig)
		log.Println("  Shutting down Worker...")
		log.Println("========================================")
	case err := <-errCh:
		if err != nil {
			log.Printf("Manager start failed: %v", err)
		}
	}

	// 7. 优雅关闭 Manager
	mgr.Shutdown()

	fmt.Println("========================================")
	fmt.Println("  Worker exited gracefully")
	fmt.Println("========================================")
}
