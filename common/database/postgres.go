package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jorgedurante-source/taller-sub000/common/config"

	_ "github.com/lib/pq"
)

// PingTimeout 控制面库启动探活超时
const PingTimeout = 5 * time.Second

// NewPostgresDB 连接控制面 PostgreSQL（连锁注册表 + 同步任务表）
func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	// worker 长期运行，定期回收连接以跟随主备切换
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), PingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}

	return db, nil
}

// Close 关闭数据库连接，nil 安全
func Close(db *sql.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}
