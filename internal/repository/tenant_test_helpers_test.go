package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jorgedurante-source/taller-sub000/common/config"
)

func newTestDirectory(t *testing.T) *SQLiteDirectory {
	dir, err := NewSQLiteDirectory(config.SQLiteConfig{DataDir: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { dir.Close() })
	return dir
}

func openTestTenant(t *testing.T, dir *SQLiteDirectory, slug string) *sql.DB {
	db, err := dir.DB(context.Background(), slug)
	require.NoError(t, err)
	return db
}
