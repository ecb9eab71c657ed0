package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jorgedurante-source/taller-sub000/common/config"
	"github.com/jorgedurante-source/taller-sub000/internal/domain"
)

// Config 连锁数据同步服务配置
type Config struct {
	// DBEnabled 关闭时使用内存注册表和内存任务表（开发环境）
	DBEnabled bool
	Database  config.DatabaseConfig
	Redis     config.RedisConfig
	Tenants   config.SQLiteConfig

	// Redis 可选：关闭时连锁成员不缓存，失败任务不发布到 Stream
	RedisEnabled bool

	Chain struct {
		CacheTTL time.Duration // 成员关系缓存 TTL，默认 60s
	}

	Sync struct {
		Enabled      bool
		Interval     time.Duration // 轮询间隔，默认 30s
		BatchSize    int           // 每轮最多处理任务数，默认 50
		MaxAttempts  int           // 最大尝试次数，默认 3
		JobTimeout   time.Duration // 单任务超时，0 = 不限制
		FailedStream string        // 失败任务 Stream，如 "sync:jobs:failed"
		StreamMaxLen int64
	}

	Federation struct {
		Concurrency    int // 并行查询的租户数，默认 4
		PerTenantLimit int // 统一订单视图每个租户的上限，默认 100
	}

	HTTP struct {
		Addr string
	}

	Metrics struct {
		Enabled bool
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（默认值）
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = 5432
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "taller")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	if v := os.Getenv("DB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_PORT %q: %w", v, err)
		}
		cfg.Database.Port = port
	}

	cfg.Tenants.DataDir = getEnv("TENANT_DATA_DIR", "./data/tenants")
	cfg.Tenants.BusyTimeout = time.Duration(parseInt(getEnv("TENANT_BUSY_TIMEOUT_MS", "5000"), 5000)) * time.Millisecond

	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "true") == "true"
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Chain.CacheTTL = parseDuration(getEnv("CHAIN_CACHE_TTL", "60s"), 60*time.Second)

	cfg.Sync.Enabled = getEnv("SYNC_ENABLED", "true") == "true"
	cfg.Sync.Interval = parseDuration(getEnv("SYNC_INTERVAL", "30s"), 30*time.Second)
	cfg.Sync.BatchSize = parseInt(getEnv("SYNC_BATCH_SIZE", "50"), 50)
	// 只允许调低，上限固定为 3 次
	cfg.Sync.MaxAttempts = parseInt(getEnv("SYNC_MAX_ATTEMPTS", "3"), domain.DefaultMaxAttempts)
	if cfg.Sync.MaxAttempts > domain.DefaultMaxAttempts {
		cfg.Sync.MaxAttempts = domain.DefaultMaxAttempts
	}
	cfg.Sync.JobTimeout = parseDuration(getEnv("SYNC_JOB_TIMEOUT", "0"), 0)
	cfg.Sync.FailedStream = getEnv("SYNC_FAILED_STREAM", "sync:jobs:failed")
	cfg.Sync.StreamMaxLen = int64(parseInt(getEnv("SYNC_FAILED_STREAM_MAXLEN", "10000"), 10000))

	cfg.Federation.Concurrency = parseInt(getEnv("FEDERATION_CONCURRENCY", "4"), 4)
	cfg.Federation.PerTenantLimit = parseInt(getEnv("FEDERATION_ORDERS_LIMIT", "100"), 100)

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.Metrics.Enabled = getEnv("METRICS_ENABLED", "true") == "true"

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseInt 非法或非正数时返回默认值
func parseInt(s string, defaultValue int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return defaultValue
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	if s == "0" {
		return 0
	}
	if v, err := time.ParseDuration(s); err == nil && v >= 0 {
		return v
	}
	return defaultValue
}
