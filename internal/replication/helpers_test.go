package replication

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jorgedurante-source/taller-sub000/common/config"
	"github.com/jorgedurante-source/taller-sub000/internal/domain"
	"github.com/jorgedurante-source/taller-sub000/internal/metrics"
	"github.com/jorgedurante-source/taller-sub000/internal/repository"
)

// MockChainRegistry 是 ChainRegistry 的 mock 实现
type MockChainRegistry struct {
	mock.Mock
}

func (m *MockChainRegistry) GetChain(ctx context.Context, chainID string) (*domain.Chain, error) {
	args := m.Called(ctx, chainID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chain), args.Error(1)
}

func (m *MockChainRegistry) GetChainByTenant(ctx context.Context, tenantSlug string) (*domain.Chain, error) {
	args := m.Called(ctx, tenantSlug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chain), args.Error(1)
}

func (m *MockChainRegistry) ListMembers(ctx context.Context, chainID string) ([]string, error) {
	args := m.Called(ctx, chainID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockChainRegistry) GetChainUser(ctx context.Context, userID string) (*domain.ChainUser, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChainUser), args.Error(1)
}

// recordingNotifier 记录收到的失败任务
type recordingNotifier struct {
	jobs []domain.SyncJob
}

func (n *recordingNotifier) NotifyFailed(_ context.Context, job domain.SyncJob) error {
	n.jobs = append(n.jobs, job)
	return nil
}

// fixture 两个门店 {a, b} 组成的连锁，加一个不在连锁里的 solo
type fixture struct {
	registry *repository.MemoryChainRegistry
	jobs     *repository.MemoryJobStore
	tenants  *repository.SQLiteDirectory
	metrics  *metrics.Metrics
	notifier *recordingNotifier
	enqueuer *Enqueuer
	worker   *Worker
}

const testChainID = "chain-1"

func newFixture(t *testing.T, members ...string) *fixture {
	t.Helper()
	if len(members) == 0 {
		members = []string{"a", "b"}
	}

	registry := repository.NewMemoryChainRegistry()
	registry.PutChain(domain.Chain{ChainID: testChainID, Slug: "red", Name: "Red", VisibilityLevel: domain.VisibilityFull})
	for _, slug := range members {
		require.NoError(t, registry.AddMember(testChainID, slug))
	}

	tenants, err := repository.NewSQLiteDirectory(config.SQLiteConfig{DataDir: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { tenants.Close() })
	for _, slug := range members {
		_, err := tenants.DB(context.Background(), slug)
		require.NoError(t, err)
	}

	jobs := repository.NewMemoryJobStore()
	m := metrics.NewMetrics(nil)
	notifier := &recordingNotifier{}

	return &fixture{
		registry: registry,
		jobs:     jobs,
		tenants:  tenants,
		metrics:  m,
		notifier: notifier,
		enqueuer: NewEnqueuer(registry, jobs, m, zap.NewNop()),
		worker:   NewWorker(WorkerConfig{Interval: time.Hour}, jobs, tenants, notifier, m, zap.NewNop()),
	}
}

func (f *fixture) db(t *testing.T, slug string) *sql.DB {
	t.Helper()
	db, err := f.tenants.DB(context.Background(), slug)
	require.NoError(t, err)
	return db
}

func (f *fixture) repo(t *testing.T, slug string) *repository.TenantRepo {
	return repository.NewTenantRepo(f.db(t, slug))
}

// createClient 模拟业务写入：本地提交后再入队
func (f *fixture) createClient(t *testing.T, slug string, c *domain.Client) EnqueueResult {
	t.Helper()
	c.SourceTenant = slug
	_, err := f.repo(t, slug).CreateClient(context.Background(), c)
	require.NoError(t, err)
	return f.enqueuer.Enqueue(context.Background(), slug, c.ToPayload())
}

func (f *fixture) tick(t *testing.T) TickStats {
	t.Helper()
	stats, err := f.worker.RunOnce(context.Background())
	require.NoError(t, err)
	return stats
}

func (f *fixture) allJobs(t *testing.T) []domain.SyncJob {
	t.Helper()
	jobs, err := f.jobs.ListJobs(context.Background(), repository.JobFilter{Limit: 1000})
	require.NoError(t, err)
	return jobs
}

func countClients(t *testing.T, db *sql.DB, id string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM clients WHERE uuid = $1`, id).Scan(&n))
	return n
}
