package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/jorgedurante-source/taller-sub000/common/database"
	rediscommon "github.com/jorgedurante-source/taller-sub000/common/redis"
	"github.com/jorgedurante-source/taller-sub000/internal/config"
	"github.com/jorgedurante-source/taller-sub000/internal/federation"
	httpapi "github.com/jorgedurante-source/taller-sub000/internal/http"
	"github.com/jorgedurante-source/taller-sub000/internal/metrics"
	"github.com/jorgedurante-source/taller-sub000/internal/replication"
	"github.com/jorgedurante-source/taller-sub000/internal/repository"
	"github.com/jorgedurante-source/taller-sub000/internal/store"
)

// Dependencies 外部依赖；DB / Redis 为 nil 时对应功能降级
type Dependencies struct {
	DB       *sql.DB
	Redis    *redis.Client
	Registry repository.ChainRegistry
	Jobs     repository.JobStore
	Tenants  *repository.SQLiteDirectory
}

// SyncService 连锁数据同步服务：复制队列 worker + 统一视图 HTTP API
type SyncService struct {
	config *config.Config
	logger *zap.Logger
	deps   Dependencies

	promRegistry *prometheus.Registry
	metrics      *metrics.Metrics

	registry repository.ChainRegistry
	enqueuer *replication.Enqueuer
	worker   *replication.Worker
	engine   *federation.Engine
	server   *Server
}

// NewSyncService 按配置连接 PostgreSQL / Redis / 租户目录
func NewSyncService(cfg *config.Config, logger *zap.Logger) (*SyncService, error) {
	deps := Dependencies{}

	tenants, err := repository.NewSQLiteDirectory(cfg.Tenants, logger)
	if err != nil {
		return nil, err
	}
	deps.Tenants = tenants

	if cfg.DBEnabled {
		db, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			tenants.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		deps.DB = db
		deps.Registry = repository.NewPostgresChainRegistry(db)
		deps.Jobs = repository.NewPostgresJobStore(db, logger)
	} else {
		// DB 未启用：内存注册表 + 内存任务表（进程重启即丢失）
		logger.Warn("DB disabled, using in-memory chain registry and job store")
		deps.Registry = repository.NewMemoryChainRegistry()
		deps.Jobs = repository.NewMemoryJobStore()
	}

	if cfg.RedisEnabled {
		client := rediscommon.NewRedisClient(&cfg.Redis)
		if err := rediscommon.Ping(context.Background(), client); err != nil {
			logger.Warn("Redis unavailable, continuing without membership cache", zap.Error(err))
			_ = client.Close()
		} else {
			deps.Redis = client
		}
	}

	return NewSyncServiceWithDeps(cfg, deps, logger), nil
}

// NewSyncServiceWithDeps 使用已建立的依赖组装服务
func NewSyncServiceWithDeps(cfg *config.Config, deps Dependencies, logger *zap.Logger) *SyncService {
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(promRegistry)

	registry := deps.Registry
	var notifier replication.FailureNotifier = replication.NopNotifier{}
	if deps.Redis != nil {
		registry = repository.NewCachedChainRegistry(registry, store.NewRedisKV(deps.Redis), cfg.Chain.CacheTTL, logger)
		if cfg.Sync.FailedStream != "" {
			notifier = replication.NewStreamFailureNotifier(deps.Redis, cfg.Sync.FailedStream, cfg.Sync.StreamMaxLen)
		}
	}

	worker := replication.NewWorker(replication.WorkerConfig{
		Interval:    cfg.Sync.Interval,
		BatchSize:   cfg.Sync.BatchSize,
		MaxAttempts: cfg.Sync.MaxAttempts,
		JobTimeout:  cfg.Sync.JobTimeout,
	}, deps.Jobs, deps.Tenants, notifier, m, logger)

	engine := federation.NewEngine(registry, deps.Tenants, cfg.Federation.Concurrency, m, logger)

	s := &SyncService{
		config:       cfg,
		logger:       logger,
		deps:         deps,
		promRegistry: promRegistry,
		metrics:      m,
		registry:     registry,
		enqueuer:     replication.NewEnqueuer(deps.Registry, deps.Jobs, m, logger), // 入队不走成员缓存
		worker:       worker,
		engine:       engine,
	}

	if cfg.HTTP.Addr != "" {
		router := httpapi.NewRouter(logger)
		router.RegisterChainRoutes(httpapi.NewChainHandler(engine, registry, cfg.Federation.PerTenantLimit, logger))
		router.RegisterSyncRoutes(httpapi.NewSyncHandler(deps.Jobs, logger))
		var gatherer prometheus.Gatherer
		if cfg.Metrics.Enabled {
			gatherer = promRegistry
		}
		router.RegisterOpsRoutes(gatherer)
		s.server = NewServer(cfg.HTTP.Addr, router, logger)
	}
	return s
}

// Enqueuer 同进程的业务写入在本地提交后调用
func (s *SyncService) Enqueuer() *replication.Enqueuer { return s.enqueuer }

func (s *SyncService) Worker() *replication.Worker { return s.worker }

func (s *SyncService) Engine() *federation.Engine { return s.engine }

// Start 启动 HTTP 服务，并在当前 goroutine 运行同步 worker，直到 ctx 结束
func (s *SyncService) Start(ctx context.Context) error {
	s.logger.Info("Starting taller-sync service",
		zap.Bool("sync_enabled", s.config.Sync.Enabled),
		zap.Bool("db_enabled", s.deps.DB != nil),
		zap.Bool("redis_enabled", s.deps.Redis != nil),
	)

	if s.server != nil {
		go func() {
			if err := s.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("HTTP server stopped", zap.Error(err))
			}
		}()
	}

	if !s.config.Sync.Enabled {
		<-ctx.Done()
		return nil
	}
	return s.worker.Start(ctx)
}

// Stop 关闭 HTTP 服务和所有连接
func (s *SyncService) Stop(ctx context.Context) error {
	var errs []error
	if s.server != nil {
		if err := s.server.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.deps.Tenants != nil {
		if err := s.deps.Tenants.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.deps.Redis != nil {
		if err := rediscommon.Close(s.deps.Redis); err != nil {
			errs = append(errs, err)
		}
	}
	if err := database.Close(s.deps.DB); err != nil {
		errs = append(errs, err)
	}
	s.logger.Info("taller-sync service stopped")
	return errors.Join(errs...)
}
