package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/jorgedurante-source/taller-sub000/common/config"
	"github.com/jorgedurante-source/taller-sub000/common/database"

	"go.uber.org/zap"
)

var (
	ErrInvalidTenantSlug = errors.New("invalid tenant slug")
	ErrTenantNotFound    = errors.New("tenant database does not exist")
)

// TenantDirectory 租户 slug -> 独立数据库句柄
type TenantDirectory interface {
	// DB 打开租户库，不存在时创建
	DB(ctx context.Context, slug string) (*sql.DB, error)
	// Existing 只打开已存在的租户库，同步写入目标用它
	Existing(ctx context.Context, slug string) (*sql.DB, error)
}

// SQLiteDirectory 每个租户一个 SQLite 文件，句柄打开后缓存复用
type SQLiteDirectory struct {
	cfg    config.SQLiteConfig
	logger *zap.Logger

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

func NewSQLiteDirectory(cfg config.SQLiteConfig, logger *zap.Logger) (*SQLiteDirectory, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("tenant data dir is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create tenant data dir: %w", err)
	}
	return &SQLiteDirectory{
		cfg:    cfg,
		logger: logger,
		dbs:    map[string]*sql.DB{},
	}, nil
}

func validSlug(slug string) bool {
	if slug == "" || slug == "." || slug == ".." {
		return false
	}
	return !strings.ContainsAny(slug, `/\`) && !strings.Contains(slug, "..")
}

// DB 打开（或复用）租户库，首次打开时建表
func (d *SQLiteDirectory) DB(ctx context.Context, slug string) (*sql.DB, error) {
	if !validSlug(slug) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTenantSlug, slug)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if db, ok := d.dbs[slug]; ok {
		return db, nil
	}

	db, err := database.NewSQLiteDB(d.cfg.GetDSN(slug))
	if err != nil {
		return nil, fmt.Errorf("failed to open tenant %s: %w", slug, err)
	}
	if err := ApplyTenantSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("tenant %s: %w", slug, err)
	}

	d.dbs[slug] = db
	d.logger.Debug("Opened tenant database", zap.String("tenant_slug", slug), zap.String("path", d.cfg.PathFor(slug)))
	return db, nil
}

// Existing 租户库文件不存在时返回 ErrTenantNotFound，不会创建空库
func (d *SQLiteDirectory) Existing(ctx context.Context, slug string) (*sql.DB, error) {
	if !validSlug(slug) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTenantSlug, slug)
	}

	d.mu.Lock()
	_, open := d.dbs[slug]
	d.mu.Unlock()

	if !open {
		if _, err := os.Stat(d.cfg.PathFor(slug)); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrTenantNotFound, slug)
			}
			return nil, fmt.Errorf("failed to stat tenant %s: %w", slug, err)
		}
	}
	return d.DB(ctx, slug)
}

// Close 关闭所有已打开的租户库
func (d *SQLiteDirectory) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	for slug, db := range d.dbs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close tenant %s: %w", slug, err)
		}
		delete(d.dbs, slug)
	}
	return firstErr
}
