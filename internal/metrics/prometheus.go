package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 同步队列与联邦查询的 Prometheus 指标
type Metrics struct {
	// Enqueue
	EnqueueTotal *prometheus.CounterVec
	JobsEnqueued *prometheus.CounterVec

	// Worker
	JobsProcessed *prometheus.CounterVec
	TickDuration  prometheus.Histogram
	TickClaimed   prometheus.Gauge

	// Federation
	TenantQueries       *prometheus.CounterVec
	TenantQueryDuration *prometheus.HistogramVec
}

// NewMetrics 在 reg 上注册指标；reg 为 nil 时使用独立 registry（测试用）
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		EnqueueTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chain_sync_enqueue_total",
				Help: "Enqueue attempts by outcome",
			},
			[]string{"outcome"},
		),
		JobsEnqueued: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chain_sync_jobs_enqueued_total",
				Help: "Sync jobs inserted into the ledger",
			},
			[]string{"operation"},
		),
		JobsProcessed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chain_sync_jobs_processed_total",
				Help: "Sync job applications by operation and result (done, retry, failed)",
			},
			[]string{"operation", "result"},
		),
		TickDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chain_sync_tick_duration_seconds",
				Help:    "Duration of one worker tick",
				Buckets: prometheus.DefBuckets,
			},
		),
		TickClaimed: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "chain_sync_tick_claimed_jobs",
				Help: "Jobs claimed by the last worker tick",
			},
		),
		TenantQueries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chain_federated_tenant_queries_total",
				Help: "Per-tenant federated queries by result (ok, error)",
			},
			[]string{"result"},
		),
		TenantQueryDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chain_federated_tenant_query_duration_seconds",
				Help:    "Duration of a single tenant query inside a scatter-gather",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
	}
}
