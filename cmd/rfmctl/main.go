package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"

	"oip/rfmengine/common/model"
	"oip/rfmengine/internal/bootstrap"
	"oip/rfmengine/internal/business"
	"oip/rfmengine/pkg/config"
	"oip/rfmengine/pkg/errorutil"
)

const usage = `rfmctl 一次性执行 RFM 任务

用法:
  rfmctl [-config path] calculate [-as-of YYYY-MM-DD]
  rfmctl [-config path] seed
`

var (
	configPath = flag.String("config", "./config/worker.yaml", "配置文件路径")
)

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	os.Exit(run(flag.Arg(0), flag.Args()[1:]))
}

// run 执行子命令并返回退出码：0 成功，1 失败，2 用法错误，3 部分失败
func run(cmd string, args []string) int {
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("Config validation failed: %v", err)
		return 1
	}

	zapLogger, err := bootstrap.NewLogger(cfg, "rfmctl")
	if err != nil {
		log.Printf("Failed to create logger: %v", err)
		return 1
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, zapLogger, bootstrap.Options{Service: "rfmctl"})
	if err != nil {
		log.Printf("Failed to bootstrap: %v", err)
		return 1
	}
	defer app.Close()

	switch cmd {
	case "calculate":
		err = runCalculate(ctx, app, args)
	case "seed":
		var n int
		n, err = app.Segments.SeedSegments(ctx)
		if err == nil {
			fmt.Printf("segments ready: %d\n", n)
		}
	default:
		flag.Usage()
		return 2
	}

	if err != nil {
		var e *errorutil.Error
		if errors.As(err, &e) && e.Code == errorutil.CodePartial {
			log.Printf("Finished with failures: %v", err)
			return 3
		}
		log.Printf("Failed: %v", err)
		return 1
	}
	return 0
}

func runCalculate(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := flag.NewFlagSet("calculate", flag.ExitOnError)
	asOfFlag := fs.String("as-of", "", "评估基准日 YYYY-MM-DD，默认当天（UTC）")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var asOf time.Time
	if *asOfFlag != "" {
		t, err := time.Parse(model.AsOfLayout, *asOfFlag)
		if err != nil {
			return fmt.Errorf("invalid -as-of: %w", err)
		}
		asOf = t
	}

	progress := newProgress()
	result, err := app.Calculation.Calculate(ctx, business.CalculateRequest{
		AsOf:     asOf,
		Trigger:  model.TriggerCLI,
		Progress: progress.update,
	})
	progress.finish()

	if result != nil {
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
	}
	return err
}

// progress 评分进度条，回调可能来自多个评分协程
type progress struct {
	mu   sync.Mutex
	bar  *progressbar.ProgressBar
	done int
}

func newProgress() *progress {
	return &progress{}
}

func (p *progress) update(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		p.bar = progressbar.Default(int64(total), "scoring")
	}
	if done > p.done {
		p.done = done
		_ = p.bar.Set(done)
	}
}

func (p *progress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
		fmt.Println()
	}
}
