package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jorgedurante-source/taller-sub000/internal/domain"
	"github.com/jorgedurante-source/taller-sub000/internal/store"

	"go.uber.org/zap"
)

// CachedChainRegistry 成员关系缓存（Redis），只用于联邦查询等读路径；
// 入队必须读底层注册表，否则 TTL 内加入的成员会丢任务。
// 不缓存“不属于任何连锁”，缓存读写失败只记日志，回落到底层注册表
type CachedChainRegistry struct {
	inner  ChainRegistry
	kv     store.KV
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedChainRegistry(inner ChainRegistry, kv store.KV, ttl time.Duration, logger *zap.Logger) *CachedChainRegistry {
	return &CachedChainRegistry{inner: inner, kv: kv, ttl: ttl, logger: logger}
}

func tenantChainKey(slug string) string    { return "chain:tenant:" + slug }
func chainMembersKey(chainID string) string { return "chain:members:" + chainID }

func (r *CachedChainRegistry) GetChain(ctx context.Context, chainID string) (*domain.Chain, error) {
	return r.inner.GetChain(ctx, chainID)
}

func (r *CachedChainRegistry) GetChainUser(ctx context.Context, userID string) (*domain.ChainUser, error) {
	return r.inner.GetChainUser(ctx, userID)
}

func (r *CachedChainRegistry) GetChainByTenant(ctx context.Context, tenantSlug string) (*domain.Chain, error) {
	key := tenantChainKey(tenantSlug)
	if val, err := r.kv.Get(ctx, key); err == nil {
		var c domain.Chain
		if err := json.Unmarshal([]byte(val), &c); err == nil {
			return &c, nil
		}
		r.logger.Warn("Invalid cached chain, reloading", zap.String("key", key))
	} else if !errors.Is(err, store.ErrMiss) {
		r.logger.Warn("Chain cache read failed", zap.String("key", key), zap.Error(err))
	}

	c, err := r.inner.GetChainByTenant(ctx, tenantSlug)
	if err != nil || c == nil {
		return c, err
	}

	b, _ := json.Marshal(c)
	if err := r.kv.Set(ctx, key, string(b), r.ttl); err != nil {
		r.logger.Warn("Chain cache write failed", zap.String("key", key), zap.Error(err))
	}
	return c, nil
}

func (r *CachedChainRegistry) ListMembers(ctx context.Context, chainID string) ([]string, error) {
	key := chainMembersKey(chainID)
	if val, err := r.kv.Get(ctx, key); err == nil {
		var slugs []string
		if err := json.Unmarshal([]byte(val), &slugs); err == nil {
			return slugs, nil
		}
		r.logger.Warn("Invalid cached chain members, reloading", zap.String("key", key))
	} else if !errors.Is(err, store.ErrMiss) {
		r.logger.Warn("Chain cache read failed", zap.String("key", key), zap.Error(err))
	}

	slugs, err := r.inner.ListMembers(ctx, chainID)
	if err != nil {
		return nil, err
	}
	b, _ := json.Marshal(slugs)
	if err := r.kv.Set(ctx, key, string(b), r.ttl); err != nil {
		r.logger.Warn("Chain cache write failed", zap.String("key", key), zap.Error(err))
	}
	return slugs, nil
}

// Invalidate 成员关系变化后清除缓存
func (r *CachedChainRegistry) Invalidate(ctx context.Context, chainID string, tenantSlugs ...string) error {
	keys := []string{chainMembersKey(chainID)}
	for _, slug := range tenantSlugs {
		keys = append(keys, tenantChainKey(slug))
	}
	return r.kv.Del(ctx, keys...)
}
