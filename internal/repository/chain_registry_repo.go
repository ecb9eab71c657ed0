package repository

import (
	"context"
	"errors"

	"github.com/jorgedurante-source/taller-sub000/internal/domain"
)

var (
	ErrChainNotFound     = errors.New("chain not found")
	ErrChainUserNotFound = errors.New("chain user not found")
)

// ChainRegistry 连锁注册表（只读）
type ChainRegistry interface {
	GetChain(ctx context.Context, chainID string) (*domain.Chain, error)
	// GetChainByTenant 租户所属连锁；不属于任何连锁时返回 nil, nil
	GetChainByTenant(ctx context.Context, tenantSlug string) (*domain.Chain, error)
	// ListMembers 连锁全部成员 slug（按 slug 排序）
	ListMembers(ctx context.Context, chainID string) ([]string, error)
	GetChainUser(ctx context.Context, userID string) (*domain.ChainUser, error)
}
