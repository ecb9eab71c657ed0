package replication

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	rediscommon "github.com/jorgedurante-source/taller-sub000/common/redis"
	"github.com/jorgedurante-source/taller-sub000/internal/domain"
)

// FailureNotifier 任务进入 failed 终态时的通知
type FailureNotifier interface {
	NotifyFailed(ctx context.Context, job domain.SyncJob) error
}

type NopNotifier struct{}

func (NopNotifier) NotifyFailed(context.Context, domain.SyncJob) error { return nil }

// FailedJobEvent 写入 Redis Stream 的失败事件
type FailedJobEvent struct {
	JobID        string           `json:"job_id"`
	ChainID      string           `json:"chain_id"`
	SourceSlug   string           `json:"source_slug"`
	TargetSlug   string           `json:"target_slug"`
	Operation    domain.Operation `json:"operation"`
	Attempts     int              `json:"attempts"`
	ErrorMessage string           `json:"error_message"`
	FailedAt     time.Time        `json:"failed_at"`
}

// StreamFailureNotifier 把失败任务发布到 Redis Stream，供告警消费
type StreamFailureNotifier struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamFailureNotifier(client *redis.Client, stream string, maxLen int64) *StreamFailureNotifier {
	return &StreamFailureNotifier{client: client, stream: stream, maxLen: maxLen}
}

func (n *StreamFailureNotifier) NotifyFailed(ctx context.Context, job domain.SyncJob) error {
	event := FailedJobEvent{
		JobID:        job.ID,
		ChainID:      job.ChainID,
		SourceSlug:   job.SourceSlug,
		TargetSlug:   job.TargetSlug,
		Operation:    job.Operation,
		Attempts:     job.Attempts,
		ErrorMessage: job.ErrorMessage,
	}
	if job.ProcessedAt != nil {
		event.FailedAt = *job.ProcessedAt
	}
	_, err := rediscommon.PublishJSONToStream(ctx, n.client, n.stream, event, n.maxLen)
	return err
}
