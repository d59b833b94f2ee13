package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 RFM_MYSQL_DSN 覆盖 mysql.dsn
const EnvPrefix = "RFM"

// Config 全局配置
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Lmstfy    LmstfyConfig    `mapstructure:"lmstfy"`
	RFM       RFMConfig       `mapstructure:"rfm"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Workers   []WorkerConfig  `mapstructure:"workers"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name      string `mapstructure:"name"`
	Env       string `mapstructure:"env"`
	LogLevel  string `mapstructure:"log_level"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr          string        `mapstructure:"addr"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	JobQueue      string        `mapstructure:"job_queue"`      // 异步任务投递队列（worker 消费）
	CallbackQueue string        `mapstructure:"callback_queue"` // worker 回调队列
	JobTTL        time.Duration `mapstructure:"job_ttl"`        // 任务状态保留时长
}

// AsyncEnabled 异步任务需要 lmstfy 投递、Redis 保存状态
func (c *Config) AsyncEnabled() bool {
	return c.Lmstfy.Host != "" && c.Redis.Enabled() && c.Server.JobQueue != ""
}

// MySQLConfig MySQL 配置
type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Enabled 未配置地址时退化为进程内锁、不发布完成通知
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// LmstfyConfig Lmstfy 配置
type LmstfyConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Namespace string `mapstructure:"namespace"`
	Token     string `mapstructure:"token"`
}

// RFMConfig 计算任务配置
type RFMConfig struct {
	PageSize      int           `mapstructure:"page_size"`      // 客户读取分页大小
	BatchSize     int           `mapstructure:"batch_size"`     // 评分落库批大小
	Concurrency   int           `mapstructure:"concurrency"`    // 评分并发度
	LockKey       string        `mapstructure:"lock_key"`       // 分布式锁 key
	LockTTL       time.Duration `mapstructure:"lock_ttl"`       // 锁租约
	NotifyChannel string        `mapstructure:"notify_channel"` // 完成通知频道
	RunTimeout    time.Duration `mapstructure:"run_timeout"`    // 单次计算超时
}

// SchedulerConfig 定时重算配置
type SchedulerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Spec    string `mapstructure:"spec"` // cron 表达式
}

// WorkerConfig Worker 配置
type WorkerConfig struct {
	Name          string           `mapstructure:"name"`
	QueueName     string           `mapstructure:"queue_name"`
	CallbackQueue string           `mapstructure:"callback_queue"` // 回调队列名称
	Subscriber    SubscriberConfig `mapstructure:"subscriber"`
	Processor     ProcessorConfig  `mapstructure:"processor"`
}

// SubscriberConfig Subscriber 配置
type SubscriberConfig struct {
	Threads      int           `mapstructure:"threads"`       // 并发拉取数
	Rate         time.Duration `mapstructure:"rate"`          // 拉取速率
	Timeout      time.Duration `mapstructure:"timeout"`       // 拉取超时
	TTR          time.Duration `mapstructure:"ttr"`           // Time-To-Run
	ErrorBackoff time.Duration `mapstructure:"error_backoff"` // 错误退避时间
}

// ProcessorConfig Processor 配置
type ProcessorConfig struct {
	Threads    int           `mapstructure:"threads"`     // 并发处理数
	BufferSize int           `mapstructure:"buffer_size"` // Channel 缓冲大小
	Timeout    time.Duration `mapstructure:"timeout"`     // 单个任务超时
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "rfm-engine")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.sentry_dsn", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Minute)
	v.SetDefault("server.job_queue", "rfm_jobs")
	v.SetDefault("server.callback_queue", "rfm_callbacks")
	v.SetDefault("server.job_ttl", 24*time.Hour)

	v.SetDefault("mysql.dsn", "")
	v.SetDefault("mysql.max_open_conns", 20)
	v.SetDefault("mysql.max_idle_conns", 5)
	v.SetDefault("mysql.conn_max_lifetime", time.Hour)
	v.SetDefault("mysql.auto_migrate", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("lmstfy.host", "")
	v.SetDefault("lmstfy.port", 7777)
	v.SetDefault("lmstfy.namespace", "")
	v.SetDefault("lmstfy.token", "")

	v.SetDefault("rfm.page_size", 1000)
	v.SetDefault("rfm.batch_size", 500)
	v.SetDefault("rfm.concurrency", 8)
	v.SetDefault("rfm.lock_key", "rfm:calculation:lock")
	v.SetDefault("rfm.lock_ttl", 2*time.Minute)
	v.SetDefault("rfm.notify_channel", "rfm:calculation:complete")
	v.SetDefault("rfm.run_timeout", 30*time.Minute)

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.spec", "0 3 * * *")
}

// Load 加载配置文件
// 工作目录下存在 .env 时先载入环境变量，RFM_ 前缀的环境变量优先于文件
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env failed: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config failed: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	return &cfg, nil
}

// Validate 验证公共配置
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	if c.MySQL.DSN == "" {
		return fmt.Errorf("mysql.dsn is required")
	}
	if c.RFM.PageSize <= 0 || c.RFM.BatchSize <= 0 {
		return fmt.Errorf("rfm.page_size and rfm.batch_size must be positive")
	}
	if c.RFM.Concurrency <= 0 {
		return fmt.Errorf("rfm.concurrency must be positive")
	}
	if c.RFM.LockTTL < time.Second {
		return fmt.Errorf("rfm.lock_ttl must be at least 1s")
	}
	return nil
}

// ValidateWorker 在公共配置之外验证 Worker 所需配置
func (c *Config) ValidateWorker() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Lmstfy.Host == "" {
		return fmt.Errorf("lmstfy.host is required")
	}
	if len(c.Workers) == 0 {
		return fmt.Errorf("at least one worker is required")
	}
	for i, w := range c.Workers {
		if w.Name == "" || w.QueueName == "" {
			return fmt.Errorf("workers[%d]: name and queue_name are required", i)
		}
	}
	if c.Scheduler.Enabled && c.Scheduler.Spec == "" {
		return fmt.Errorf("scheduler.spec is required when scheduler is enabled")
	}
	return nil
}
