package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jorgedurante-source/taller-sub000/internal/domain"
)

// ErrJobNotFound 任务不存在或已处于终态
var ErrJobNotFound = errors.New("sync job not found or not pending")

// JobFilter 任务列表过滤条件
type JobFilter struct {
	Status     domain.JobStatus
	TargetSlug string
	Limit      int
}

// JobStore 同步任务表
type JobStore interface {
	// InsertJobs 在一个事务内插入全部任务
	InsertJobs(ctx context.Context, jobs []domain.SyncJob) error
	// ClaimPending 最早的 limit 条 pending 且 attempts < maxAttempts 的任务（按 created_at 升序）
	ClaimPending(ctx context.Context, limit, maxAttempts int) ([]domain.SyncJob, error)
	MarkDone(ctx context.Context, id string, at time.Time) error
	// MarkAttemptFailed 记录一次失败；status 为 failed 时同时写入 processed_at
	MarkAttemptFailed(ctx context.Context, id string, attempts int, status domain.JobStatus, message string, at time.Time) error
	GetJob(ctx context.Context, id string) (*domain.SyncJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]domain.SyncJob, error)
	CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error)
}
