package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jorgedurante-source/taller-sub000/internal/domain"
)

// MemoryChainRegistry 内存实现（开发环境 / 测试）
type MemoryChainRegistry struct {
	mu      sync.RWMutex
	chains  map[string]domain.Chain     // chainID -> Chain
	members map[string]string           // tenantSlug -> chainID
	users   map[string]domain.ChainUser // userID -> ChainUser
}

func NewMemoryChainRegistry() *MemoryChainRegistry {
	return &MemoryChainRegistry{
		chains:  map[string]domain.Chain{},
		members: map[string]string{},
		users:   map[string]domain.ChainUser{},
	}
}

// PutChain 新增或替换连锁
func (r *MemoryChainRegistry) PutChain(c domain.Chain) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains[c.ChainID] = c
}

// AddMember 把租户加入连锁；租户已属于其它连锁时报错
func (r *MemoryChainRegistry) AddMember(chainID, tenantSlug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.chains[chainID]; !ok {
		return fmt.Errorf("%w: %s", ErrChainNotFound, chainID)
	}
	if current, ok := r.members[tenantSlug]; ok && current != chainID {
		return fmt.Errorf("tenant %s already belongs to chain %s", tenantSlug, current)
	}
	r.members[tenantSlug] = chainID
	return nil
}

// RemoveMember 租户退出连锁
func (r *MemoryChainRegistry) RemoveMember(tenantSlug string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, tenantSlug)
}

func (r *MemoryChainRegistry) PutChainUser(u domain.ChainUser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.UserID] = u
}

func (r *MemoryChainRegistry) GetChain(_ context.Context, chainID string) (*domain.Chain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChainNotFound, chainID)
	}
	return &c, nil
}

func (r *MemoryChainRegistry) GetChainByTenant(_ context.Context, tenantSlug string) (*domain.Chain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chainID, ok := r.members[tenantSlug]
	if !ok {
		return nil, nil
	}
	c, ok := r.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChainNotFound, chainID)
	}
	return &c, nil
}

func (r *MemoryChainRegistry) ListMembers(_ context.Context, chainID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.chains[chainID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrChainNotFound, chainID)
	}
	slugs := []string{}
	for slug, id := range r.members {
		if id == chainID {
			slugs = append(slugs, slug)
		}
	}
	sort.Strings(slugs)
	return slugs, nil
}

func (r *MemoryChainRegistry) GetChainUser(_ context.Context, userID string) (*domain.ChainUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChainUserNotFound, userID)
	}
	return &u, nil
}
