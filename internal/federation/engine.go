package federation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jorgedurante-source/taller-sub000/internal/metrics"
	"github.com/jorgedurante-source/taller-sub000/internal/repository"
)

// TenantResult 单个租户的查询结果；Err 非空时 Data 为零值
type TenantResult[T any] struct {
	Slug string
	Data T
	Err  error
}

// QueryFunc 在一个租户库上执行的查询
type QueryFunc[T any] func(ctx context.Context, slug string, repo *repository.TenantRepo) (T, error)

// Engine 连锁内跨租户的 scatter-gather 查询
type Engine struct {
	registry    repository.ChainRegistry
	tenants     repository.TenantDirectory
	concurrency int
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewEngine concurrency <= 0 时按成员数全部并行
func NewEngine(registry repository.ChainRegistry, tenants repository.TenantDirectory, concurrency int, m *metrics.Metrics, logger *zap.Logger) *Engine {
	if m == nil {
		m = metrics.NewMetrics(nil)
	}
	return &Engine{
		registry:    registry,
		tenants:     tenants,
		concurrency: concurrency,
		metrics:     m,
		logger:      logger,
	}
}

// QueryAllChainDbs 对连锁每个成员执行 fn，单个租户失败不影响其它租户
// 结果顺序与成员顺序一致；只有成员解析失败时返回 error
func QueryAllChainDbs[T any](ctx context.Context, e *Engine, chainID string, fn QueryFunc[T]) ([]TenantResult[T], error) {
	members, err := e.registry.ListMembers(ctx, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chain members: %w", err)
	}

	results := make([]TenantResult[T], len(members))

	var g errgroup.Group
	if e.concurrency > 0 {
		g.SetLimit(e.concurrency)
	}
	for i, slug := range members {
		i, slug := i, slug
		g.Go(func() error {
			results[i] = queryTenant(ctx, e, slug, fn)
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

func queryTenant[T any](ctx context.Context, e *Engine, slug string, fn QueryFunc[T]) (res TenantResult[T]) {
	res.Slug = slug
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			var zero T
			res.Data = zero
			res.Err = fmt.Errorf("tenant query panic: %v", r)
		}

		result := "ok"
		if res.Err != nil {
			result = "error"
			e.logger.Warn("Tenant query failed",
				zap.String("tenant_slug", slug),
				zap.Error(res.Err),
			)
		}
		e.metrics.TenantQueries.WithLabelValues(result).Inc()
		e.metrics.TenantQueryDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}()

	db, err := e.tenants.DB(ctx, slug)
	if err != nil {
		res.Err = fmt.Errorf("failed to open tenant database: %w", err)
		return res
	}

	data, err := fn(ctx, slug, repository.NewTenantRepo(db))
	if err != nil {
		res.Err = err
		return res
	}
	res.Data = data
	return res
}

// Match 首个命中的租户及其数据
type Match[T any] struct {
	Slug string
	Data T
}

// FirstMatch 按成员顺序逐个查询，第一个返回非 nil 结果的租户即停止
// 查询出错的租户记入 errs 并继续
func FirstMatch[T any](ctx context.Context, e *Engine, chainID string, fn QueryFunc[*T]) (*Match[*T], map[string]string, error) {
	members, err := e.registry.ListMembers(ctx, chainID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list chain members: %w", err)
	}

	errs := map[string]string{}
	for _, slug := range members {
		if err := ctx.Err(); err != nil {
			return nil, errs, err
		}
		res := queryTenant(ctx, e, slug, fn)
		if res.Err != nil {
			errs[slug] = res.Err.Error()
			continue
		}
		if res.Data != nil {
			return &Match[*T]{Slug: slug, Data: res.Data}, errs, nil
		}
	}
	return nil, errs, nil
}

// errorsBySlug 收集失败租户的错误信息
func errorsBySlug[T any](results []TenantResult[T]) map[string]string {
	errs := map[string]string{}
	for _, r := range results {
		if r.Err != nil {
			errs[r.Slug] = r.Err.Error()
		}
	}
	return errs
}
