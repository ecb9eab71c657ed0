package replication

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jorgedurante-source/taller-sub000/internal/domain"
	"github.com/jorgedurante-source/taller-sub000/internal/metrics"
	"github.com/jorgedurante-source/taller-sub000/internal/repository"
)

// ErrWorkerRunning 同一个 Worker 已经在运行
var ErrWorkerRunning = errors.New("sync worker already running")

// WorkerConfig 同步 worker 配置
type WorkerConfig struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
	// JobTimeout 单个任务的超时，0 表示不限制
	JobTimeout time.Duration
}

func (c *WorkerConfig) withDefaults() WorkerConfig {
	out := *c
	if out.Interval <= 0 {
		out.Interval = 30 * time.Second
	}
	if out.BatchSize <= 0 {
		out.BatchSize = 50
	}
	if out.MaxAttempts <= 0 || out.MaxAttempts > domain.DefaultMaxAttempts {
		out.MaxAttempts = domain.DefaultMaxAttempts
	}
	return out
}

// TickStats 一次 tick 的处理统计
type TickStats struct {
	Claimed int `json:"claimed"`
	Done    int `json:"done"`
	Retried int `json:"retried"`
	Failed  int `json:"failed"`
	// LedgerErrors 任务已执行但状态写回失败（下一轮会重新执行）
	LedgerErrors int `json:"ledger_errors"`
}

// Worker 定时拉取 pending 任务并在目标租户库中执行
type Worker struct {
	cfg      WorkerConfig
	jobs     repository.JobStore
	tenants  repository.TenantDirectory
	notifier FailureNotifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time

	running atomic.Bool
	tickMu  sync.Mutex
}

func NewWorker(cfg WorkerConfig, jobs repository.JobStore, tenants repository.TenantDirectory, notifier FailureNotifier, m *metrics.Metrics, logger *zap.Logger) *Worker {
	if m == nil {
		m = metrics.NewMetrics(nil)
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Worker{
		cfg:      cfg.withDefaults(),
		jobs:     jobs,
		tenants:  tenants,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start 立即执行一轮，之后按固定间隔执行，直到 ctx 结束
func (w *Worker) Start(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return ErrWorkerRunning
	}
	defer w.running.Store(false)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.logger.Info("Starting sync worker",
		zap.Duration("interval", w.cfg.Interval),
		zap.Int("batch_size", w.cfg.BatchSize),
		zap.Int("max_attempts", w.cfg.MaxAttempts),
	)

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Sync worker stopped")
			return nil
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	stats, err := w.RunOnce(ctx)
	if err != nil {
		w.logger.Error("Sync worker tick failed", zap.Error(err))
		return
	}
	if stats.Claimed > 0 {
		w.logger.Info("Sync worker tick completed",
			zap.Int("claimed", stats.Claimed),
			zap.Int("done", stats.Done),
			zap.Int("retried", stats.Retried),
			zap.Int("failed", stats.Failed),
			zap.Int("ledger_errors", stats.LedgerErrors),
		)
	}
}

// RunOnce 执行一轮：按 created_at 顺序处理最多 BatchSize 个任务，逐个隔离错误
func (w *Worker) RunOnce(ctx context.Context) (TickStats, error) {
	w.tickMu.Lock()
	defer w.tickMu.Unlock()

	start := time.Now()
	defer func() { w.metrics.TickDuration.Observe(time.Since(start).Seconds()) }()

	var stats TickStats
	jobs, err := w.jobs.ClaimPending(ctx, w.cfg.BatchSize, w.cfg.MaxAttempts)
	if err != nil {
		return stats, fmt.Errorf("failed to claim pending jobs: %w", err)
	}
	stats.Claimed = len(jobs)
	w.metrics.TickClaimed.Set(float64(len(jobs)))

	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		w.process(ctx, job, &stats)
	}
	return stats, nil
}

func (w *Worker) process(ctx context.Context, job domain.SyncJob, stats *TickStats) {
	fields := []zap.Field{
		zap.String("job_id", job.ID),
		zap.String("operation", string(job.Operation)),
		zap.String("source_slug", job.SourceSlug),
		zap.String("target_slug", job.TargetSlug),
	}

	applyErr := w.apply(ctx, job)
	now := w.now()

	if applyErr == nil {
		if err := w.jobs.MarkDone(ctx, job.ID, now); err != nil {
			stats.LedgerErrors++
			w.logger.Error("Failed to mark sync job done", append(fields, zap.Error(err))...)
			return
		}
		stats.Done++
		w.metrics.JobsProcessed.WithLabelValues(string(job.Operation), "done").Inc()
		w.logger.Debug("Sync job done", append(fields, zap.Int("attempts", job.Attempts))...)
		return
	}

	attempts := job.Attempts + 1
	status := domain.JobPending
	if attempts >= w.cfg.MaxAttempts {
		status = domain.JobFailed
	}
	fields = append(fields, zap.Int("attempts", attempts), zap.Error(applyErr))

	if err := w.jobs.MarkAttemptFailed(ctx, job.ID, attempts, status, applyErr.Error(), now); err != nil {
		stats.LedgerErrors++
		w.logger.Error("Failed to record sync job failure", append(fields, zap.NamedError("ledger_error", err))...)
		return
	}

	if status == domain.JobFailed {
		stats.Failed++
		w.metrics.JobsProcessed.WithLabelValues(string(job.Operation), "failed").Inc()
		w.logger.Error("Sync job failed permanently", fields...)

		job.Status = domain.JobFailed
		job.Attempts = attempts
		job.ErrorMessage = applyErr.Error()
		job.ProcessedAt = &now
		if err := w.notifier.NotifyFailed(ctx, job); err != nil {
			w.logger.Warn("Failed to publish failed sync job", zap.String("job_id", job.ID), zap.Error(err))
		}
		return
	}

	stats.Retried++
	w.metrics.JobsProcessed.WithLabelValues(string(job.Operation), "retry").Inc()
	w.logger.Warn("Sync job failed, will retry", fields...)
}

// apply 在目标租户库的一个本地事务中执行任务
func (w *Worker) apply(ctx context.Context, job domain.SyncJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	payload, err := domain.DecodePayload(job.Operation, job.Payload)
	if err != nil {
		return err
	}
	if _, ok := payload.(*domain.UnknownPayload); ok {
		w.logger.Warn("Unknown sync operation, marking done",
			zap.String("job_id", job.ID),
			zap.String("operation", string(job.Operation)),
		)
		return nil
	}

	if w.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.JobTimeout)
		defer cancel()
	}

	db, err := w.tenants.Existing(ctx, job.TargetSlug)
	if err != nil {
		return fmt.Errorf("failed to resolve target tenant: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := applyPayload(ctx, repository.NewTenantRepo(tx), payload)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.logger.Debug("Applied sync payload",
		zap.String("job_id", job.ID),
		zap.String("entity_id", payload.EntityID()),
		zap.String("result", string(result)),
	)
	return nil
}

// applyPayload 按载荷类型分发到对应的幂等写入
func applyPayload(ctx context.Context, repo *repository.TenantRepo, payload domain.SyncPayload) (repository.UpsertResult, error) {
	switch p := payload.(type) {
	case *domain.ClientPayload:
		return repo.UpsertReplicatedClient(ctx, p)
	case *domain.VehiclePayload:
		return repo.UpsertReplicatedVehicle(ctx, p)
	default:
		return "", fmt.Errorf("unsupported payload type %T", payload)
	}
}
