package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.EnqueueTotal.WithLabelValues("enqueued").Inc()
	m.JobsProcessed.WithLabelValues("upsert_client", "done").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnqueueTotal.WithLabelValues("enqueued")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.JobsProcessed.WithLabelValues("upsert_client", "done")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewMetrics_NilRegistryIsIsolated(t *testing.T) {
	// 两次创建不会重复注册冲突
	a := NewMetrics(nil)
	b := NewMetrics(nil)
	a.TickClaimed.Set(5)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.TickClaimed))
}
