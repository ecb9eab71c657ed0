//go:build integration
// +build integration

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jorgedurante-source/taller-sub000/common/config"
	"github.com/jorgedurante-source/taller-sub000/common/database"
	"github.com/jorgedurante-source/taller-sub000/internal/domain"
)

// getTestDB 连接测试库并建表；连不上时跳过
func getTestDB(t *testing.T) *sql.DB {
	port, _ := strconv.Atoi(getEnv("TEST_DB_PORT", "5432"))
	cfg := &config.DatabaseConfig{
		Host:     getEnv("TEST_DB_HOST", "localhost"),
		Port:     port,
		User:     getEnv("TEST_DB_USER", "postgres"),
		Password: getEnv("TEST_DB_PASSWORD", "postgres"),
		Database: getEnv("TEST_DB_NAME", "taller"),
		SSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil
	}
	if _, err := db.Exec(ControlSchemaSQL); err != nil {
		db.Close()
		t.Fatalf("Failed to apply control schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func TestPostgresJobStore_Integration_Lifecycle(t *testing.T) {
	db := getTestDB(t)
	ctx := context.Background()
	store := NewPostgresJobStore(db, zap.NewNop())

	chainID := uuid.New().String()
	target := "it-" + uuid.New().String()[:8]
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)

	jobs := []domain.SyncJob{}
	for i := 0; i < 3; i++ {
		jobs = append(jobs, domain.SyncJob{
			ID:         uuid.New().String(),
			ChainID:    chainID,
			SourceSlug: "it-source",
			TargetSlug: target,
			Operation:  domain.OpUpsertClient,
			Payload:    json.RawMessage(`{"id":"x"}`),
			Status:     domain.JobPending,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		})
	}
	require.NoError(t, store.InsertJobs(ctx, jobs))
	t.Cleanup(func() { db.Exec(`DELETE FROM sync_jobs WHERE chain_id = $1`, chainID) })

	now := time.Now().UTC()
	require.NoError(t, store.MarkDone(ctx, jobs[0].ID, now))
	require.NoError(t, store.MarkAttemptFailed(ctx, jobs[1].ID, 3, domain.JobFailed, "boom", now))

	// 终态任务不可再修改
	assert.ErrorIs(t, store.MarkDone(ctx, jobs[1].ID, now), ErrJobNotFound)

	got, err := store.GetJob(ctx, jobs[1].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, got.Status)
	assert.Equal(t, 3, got.Attempts)
	assert.Equal(t, "boom", got.ErrorMessage)
	assert.NotNil(t, got.ProcessedAt)

	listed, err := store.ListJobs(ctx, JobFilter{TargetSlug: target, Status: domain.JobPending})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, jobs[2].ID, listed[0].ID)
}
