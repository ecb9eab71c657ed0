package federation

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jorgedurante-source/taller-sub000/common/config"
	"github.com/jorgedurante-source/taller-sub000/internal/domain"
	"github.com/jorgedurante-source/taller-sub000/internal/metrics"
	"github.com/jorgedurante-source/taller-sub000/internal/repository"
)

const testChainID = "chain-1"

type fixture struct {
	dataDir  string
	registry *repository.MemoryChainRegistry
	tenants  *repository.SQLiteDirectory
	metrics  *metrics.Metrics
	engine   *Engine
}

func newFixture(t *testing.T, level domain.VisibilityLevel, members ...string) *fixture {
	t.Helper()

	registry := repository.NewMemoryChainRegistry()
	registry.PutChain(domain.Chain{ChainID: testChainID, Slug: "red", Name: "Red", VisibilityLevel: level})
	for _, slug := range members {
		require.NoError(t, registry.AddMember(testChainID, slug))
	}

	dataDir := t.TempDir()
	tenants, err := repository.NewSQLiteDirectory(config.SQLiteConfig{DataDir: dataDir}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { tenants.Close() })

	m := metrics.NewMetrics(nil)
	return &fixture{
		dataDir:  dataDir,
		registry: registry,
		tenants:  tenants,
		metrics:  m,
		engine:   NewEngine(registry, tenants, 4, m, zap.NewNop()),
	}
}

func (f *fixture) repo(t *testing.T, slug string) *repository.TenantRepo {
	t.Helper()
	db, err := f.tenants.DB(context.Background(), slug)
	require.NoError(t, err)
	return repository.NewTenantRepo(db)
}

// corrupt 在租户库首次打开前写入一个非 SQLite 文件
func (f *fixture) corrupt(t *testing.T, slug string) {
	t.Helper()
	garbage := make([]byte, 4096)
	for i := range garbage {
		garbage[i] = 'x'
	}
	require.NoError(t, os.WriteFile(filepath.Join(f.dataDir, slug+".db"), garbage, 0o644))
}

// addClient 直接写入租户库；id 为空表示历史数据
func (f *fixture) addClient(t *testing.T, slug, id, owner, name string) int64 {
	t.Helper()
	c := &domain.Client{UUID: id, SourceTenant: owner, Name: name}
	localID, err := f.repo(t, slug).CreateClient(context.Background(), c)
	require.NoError(t, err)
	return localID
}

func (f *fixture) addOrder(t *testing.T, slug string, clientID int64, token string, at time.Time, items ...repository.NewOrderItem) {
	t.Helper()
	_, err := f.repo(t, slug).CreateOrder(context.Background(), &repository.NewOrder{
		UUID:          uuid.New().String(),
		TrackingToken: token,
		ClientLocalID: clientID,
		Description:   "service " + token,
		Items:         items,
		CreatedAt:     at,
	})
	require.NoError(t, err)
}
