package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jorgedurante-source/taller-sub000/internal/domain"
)

// PostgresChainRegistry 控制面 PostgreSQL 上的连锁注册表
type PostgresChainRegistry struct {
	db *sql.DB
}

func NewPostgresChainRegistry(db *sql.DB) *PostgresChainRegistry {
	return &PostgresChainRegistry{db: db}
}

func (r *PostgresChainRegistry) GetChain(ctx context.Context, chainID string) (*domain.Chain, error) {
	var c domain.Chain
	var level string
	err := r.db.QueryRowContext(ctx,
		`SELECT chain_id::text, slug, name, visibility_level FROM chains WHERE chain_id = $1`, chainID,
	).Scan(&c.ChainID, &c.Slug, &c.Name, &level)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrChainNotFound, chainID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chain: %w", err)
	}
	c.VisibilityLevel = domain.VisibilityLevel(level)
	return &c, nil
}

func (r *PostgresChainRegistry) GetChainByTenant(ctx context.Context, tenantSlug string) (*domain.Chain, error) {
	var c domain.Chain
	var level string
	err := r.db.QueryRowContext(ctx, `
		SELECT c.chain_id::text, c.slug, c.name, c.visibility_level
		FROM chain_members m
		INNER JOIN chains c ON c.chain_id = m.chain_id
		WHERE m.tenant_slug = $1`, tenantSlug,
	).Scan(&c.ChainID, &c.Slug, &c.Name, &level)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chain by tenant: %w", err)
	}
	c.VisibilityLevel = domain.VisibilityLevel(level)
	return &c, nil
}

func (r *PostgresChainRegistry) ListMembers(ctx context.Context, chainID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tenant_slug FROM chain_members WHERE chain_id = $1 ORDER BY tenant_slug`, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chain members: %w", err)
	}
	defer rows.Close()

	slugs := []string{}
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("failed to scan chain member: %w", err)
		}
		slugs = append(slugs, slug)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chain members: %w", err)
	}
	return slugs, nil
}

func (r *PostgresChainRegistry) GetChainUser(ctx context.Context, userID string) (*domain.ChainUser, error) {
	var u domain.ChainUser
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id::text, chain_id::text, name, can_see_financials FROM chain_users WHERE user_id = $1`, userID,
	).Scan(&u.UserID, &u.ChainID, &u.Name, &u.CanSeeFinancials)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrChainUserNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chain user: %w", err)
	}
	return &u, nil
}
