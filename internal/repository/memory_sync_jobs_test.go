package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorgedurante-source/taller-sub000/internal/domain"
)

func memJob(id string, created time.Time) domain.SyncJob {
	return domain.SyncJob{
		ID: id, ChainID: "c1", SourceSlug: "a", TargetSlug: "b",
		Operation: domain.OpUpsertClient, Payload: json.RawMessage(`{"id":"u1"}`),
		Status: domain.JobPending, CreatedAt: created,
	}
}

func TestMemoryJobStore_ClaimPendingOrderAndLimit(t *testing.T) {
	s := NewMemoryJobStore()
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, s.InsertJobs(ctx, []domain.SyncJob{
		memJob("late", base.Add(2*time.Second)),
		memJob("early", base),
		memJob("mid", base.Add(time.Second)),
	}))

	jobs, err := s.ClaimPending(ctx, 2, 3)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "early", jobs[0].ID)
	assert.Equal(t, "mid", jobs[1].ID)
}

func TestMemoryJobStore_ClaimSkipsExhaustedAndTerminal(t *testing.T) {
	s := NewMemoryJobStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.InsertJobs(ctx, []domain.SyncJob{memJob("j1", now), memJob("j2", now), memJob("j3", now)}))
	require.NoError(t, s.MarkDone(ctx, "j1", now))
	require.NoError(t, s.MarkAttemptFailed(ctx, "j2", 3, domain.JobFailed, "boom", now))

	jobs, err := s.ClaimPending(ctx, 10, 3)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "j3", jobs[0].ID)
}

func TestMemoryJobStore_TerminalStatesAreFinal(t *testing.T) {
	s := NewMemoryJobStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.InsertJobs(ctx, []domain.SyncJob{memJob("j1", now)}))
	require.NoError(t, s.MarkDone(ctx, "j1", now))

	assert.ErrorIs(t, s.MarkDone(ctx, "j1", now), ErrJobNotFound)
	assert.ErrorIs(t, s.MarkAttemptFailed(ctx, "j1", 1, domain.JobPending, "x", now), ErrJobNotFound)

	j, err := s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobDone, j.Status)
	require.NotNil(t, j.ProcessedAt)
}

func TestMemoryJobStore_DuplicateInsertIsAtomic(t *testing.T) {
	s := NewMemoryJobStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.InsertJobs(ctx, []domain.SyncJob{memJob("j1", now)}))
	err := s.InsertJobs(ctx, []domain.SyncJob{memJob("j2", now), memJob("j1", now)})
	require.Error(t, err)

	_, err = s.GetJob(ctx, "j2")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestMemoryJobStore_ListAndCount(t *testing.T) {
	s := NewMemoryJobStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.InsertJobs(ctx, []domain.SyncJob{memJob("j1", now), memJob("j2", now.Add(time.Second))}))
	require.NoError(t, s.MarkAttemptFailed(ctx, "j1", 1, domain.JobPending, "retry", now))

	jobs, err := s.ListJobs(ctx, JobFilter{Status: domain.JobPending})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "j2", jobs[0].ID)
	assert.Equal(t, 1, jobs[1].Attempts)

	counts, err := s.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[domain.JobPending])
}
