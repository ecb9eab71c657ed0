package replication

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jorgedurante-source/taller-sub000/internal/domain"
	"github.com/jorgedurante-source/taller-sub000/internal/metrics"
	"github.com/jorgedurante-source/taller-sub000/internal/repository"
)

// Outcome 一次入队尝试的结果
type Outcome string

const (
	OutcomeSkippedNoChain  Outcome = "skipped_no_chain"
	OutcomeSkippedNoPeers  Outcome = "skipped_no_peers"
	OutcomeSkippedNotOwner Outcome = "skipped_not_owner"
	OutcomeEnqueued        Outcome = "enqueued"
	OutcomeFailed          Outcome = "failed"
)

// EnqueueResult 入队结果，调用方可以忽略
type EnqueueResult struct {
	Outcome  Outcome
	ChainID  string
	JobCount int
	Err      error
}

// Enqueuer 把一次本地写入展开为每个同连锁租户一条复制任务
type Enqueuer struct {
	registry repository.ChainRegistry
	jobs     repository.JobStore
	metrics  *metrics.Metrics
	logger   *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewEnqueuer(registry repository.ChainRegistry, jobs repository.JobStore, m *metrics.Metrics, logger *zap.Logger) *Enqueuer {
	if m == nil {
		m = metrics.NewMetrics(nil)
	}
	return &Enqueuer{
		registry: registry,
		jobs:     jobs,
		metrics:  m,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
}

// Enqueue 必须在本地事务提交之后调用；任何错误只记录日志和指标，不返回给调用方
func (e *Enqueuer) Enqueue(ctx context.Context, sourceSlug string, payload domain.SyncPayload) (res EnqueueResult) {
	defer func() {
		if r := recover(); r != nil {
			res = EnqueueResult{Outcome: OutcomeFailed, ChainID: res.ChainID, Err: fmt.Errorf("enqueue panic: %v", r)}
		}
		e.observe(sourceSlug, payload, res)
	}()

	// 副本不再向外传播，复制只从数据归属租户发出
	if payload.Owner() != sourceSlug {
		return EnqueueResult{Outcome: OutcomeSkippedNotOwner}
	}

	raw, err := domain.EncodePayload(payload)
	if err != nil {
		return EnqueueResult{Outcome: OutcomeFailed, Err: err}
	}

	chain, err := e.registry.GetChainByTenant(ctx, sourceSlug)
	if err != nil {
		return EnqueueResult{Outcome: OutcomeFailed, Err: fmt.Errorf("failed to resolve chain: %w", err)}
	}
	if chain == nil {
		return EnqueueResult{Outcome: OutcomeSkippedNoChain}
	}

	members, err := e.registry.ListMembers(ctx, chain.ChainID)
	if err != nil {
		return EnqueueResult{Outcome: OutcomeFailed, ChainID: chain.ChainID, Err: fmt.Errorf("failed to list chain members: %w", err)}
	}

	now := e.now()
	jobs := make([]domain.SyncJob, 0, len(members))
	for _, slug := range members {
		if slug == sourceSlug {
			continue
		}
		jobs = append(jobs, domain.SyncJob{
			ID:         e.newID(),
			ChainID:    chain.ChainID,
			SourceSlug: sourceSlug,
			TargetSlug: slug,
			Operation:  payload.Operation(),
			Payload:    raw,
			Status:     domain.JobPending,
			CreatedAt:  now,
		})
	}
	if len(jobs) == 0 {
		return EnqueueResult{Outcome: OutcomeSkippedNoPeers, ChainID: chain.ChainID}
	}

	if err := e.jobs.InsertJobs(ctx, jobs); err != nil {
		return EnqueueResult{Outcome: OutcomeFailed, ChainID: chain.ChainID, Err: err}
	}
	return EnqueueResult{Outcome: OutcomeEnqueued, ChainID: chain.ChainID, JobCount: len(jobs)}
}

func (e *Enqueuer) observe(sourceSlug string, payload domain.SyncPayload, res EnqueueResult) {
	e.metrics.EnqueueTotal.WithLabelValues(string(res.Outcome)).Inc()

	fields := []zap.Field{
		zap.String("source_slug", sourceSlug),
		zap.String("outcome", string(res.Outcome)),
	}
	if payload != nil {
		fields = append(fields,
			zap.String("operation", string(payload.Operation())),
			zap.String("entity_id", payload.EntityID()),
		)
	}
	if res.ChainID != "" {
		fields = append(fields, zap.String("chain_id", res.ChainID))
	}

	switch res.Outcome {
	case OutcomeEnqueued:
		e.metrics.JobsEnqueued.WithLabelValues(string(payload.Operation())).Add(float64(res.JobCount))
		e.logger.Info("Enqueued sync jobs", append(fields, zap.Int("job_count", res.JobCount))...)
	case OutcomeFailed:
		e.logger.Error("Failed to enqueue sync jobs", append(fields, zap.Error(res.Err))...)
	default:
		e.logger.Debug("Skipped sync enqueue", fields...)
	}
}
