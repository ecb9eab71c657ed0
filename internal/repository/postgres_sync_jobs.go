package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jorgedurante-source/taller-sub000/internal/domain"

	"go.uber.org/zap"
)

// PostgresJobStore 控制面 PostgreSQL 上的 sync_jobs 表
type PostgresJobStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresJobStore(db *sql.DB, logger *zap.Logger) *PostgresJobStore {
	return &PostgresJobStore{db: db, logger: logger}
}

const syncJobColumns = `id::text, chain_id::text, source_slug, target_slug, operation, payload, status, attempts,
	COALESCE(error_message, ''), created_at, processed_at`

func scanSyncJob(row interface{ Scan(...any) error }) (*domain.SyncJob, error) {
	var j domain.SyncJob
	var op, status string
	var payload []byte
	var processedAt sql.NullTime
	if err := row.Scan(&j.ID, &j.ChainID, &j.SourceSlug, &j.TargetSlug, &op, &payload, &status, &j.Attempts,
		&j.ErrorMessage, &j.CreatedAt, &processedAt); err != nil {
		return nil, err
	}
	j.Operation = domain.Operation(op)
	j.Status = domain.JobStatus(status)
	j.Payload = payload
	if processedAt.Valid {
		t := processedAt.Time
		j.ProcessedAt = &t
	}
	return &j, nil
}

func (s *PostgresJobStore) InsertJobs(ctx context.Context, jobs []domain.SyncJob) error {
	if len(jobs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, j := range jobs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sync_jobs (id, chain_id, source_slug, target_slug, operation, payload, status, attempts, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			j.ID, j.ChainID, j.SourceSlug, j.TargetSlug, string(j.Operation), []byte(j.Payload), string(j.Status), j.Attempts, j.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert sync job: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sync jobs: %w", err)
	}
	return nil
}

// ClaimPending 单进程单 worker 假设下不加行锁；多实例部署需要租约列或 FOR UPDATE SKIP LOCKED
func (s *PostgresJobStore) ClaimPending(ctx context.Context, limit, maxAttempts int) ([]domain.SyncJob, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+syncJobColumns+`
		FROM sync_jobs
		WHERE status = 'pending' AND attempts < $1
		ORDER BY created_at ASC
		LIMIT $2`, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim sync jobs: %w", err)
	}
	defer rows.Close()

	return collectSyncJobs(rows)
}

func collectSyncJobs(rows *sql.Rows) ([]domain.SyncJob, error) {
	jobs := []domain.SyncJob{}
	for rows.Next() {
		j, err := scanSyncJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sync jobs: %w", err)
	}
	return jobs, nil
}

func (s *PostgresJobStore) MarkDone(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_jobs SET status = 'done', processed_at = $1 WHERE id = $2 AND status = 'pending'`, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark sync job done: %w", err)
	}
	return expectOneRow(res, id)
}

func (s *PostgresJobStore) MarkAttemptFailed(ctx context.Context, id string, attempts int, status domain.JobStatus, message string, at time.Time) error {
	var processedAt sql.NullTime
	if status == domain.JobFailed {
		processedAt = sql.NullTime{Time: at, Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE sync_jobs
		SET attempts = $1, status = $2, error_message = $3, processed_at = $4
		WHERE id = $5 AND status = 'pending'`,
		attempts, string(status), message, processedAt, id)
	if err != nil {
		return fmt.Errorf("failed to record sync job failure: %w", err)
	}
	return expectOneRow(res, id)
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return nil
}

func (s *PostgresJobStore) GetJob(ctx context.Context, id string) (*domain.SyncJob, error) {
	j, err := scanSyncJob(s.db.QueryRowContext(ctx, `SELECT `+syncJobColumns+` FROM sync_jobs WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync job: %w", err)
	}
	return j, nil
}

func (s *PostgresJobStore) ListJobs(ctx context.Context, filter JobFilter) ([]domain.SyncJob, error) {
	where := []string{}
	args := []any{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.TargetSlug != "" {
		args = append(args, filter.TargetSlug)
		where = append(where, fmt.Sprintf("target_slug = $%d", len(args)))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	query := `SELECT ` + syncJobColumns + ` FROM sync_jobs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync jobs: %w", err)
	}
	defer rows.Close()

	return collectSyncJobs(rows)
}

func (s *PostgresJobStore) CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sync_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count sync jobs: %w", err)
	}
	defer rows.Close()

	counts := map[domain.JobStatus]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan sync job count: %w", err)
		}
		counts[domain.JobStatus(status)] = n
	}
	return counts, rows.Err()
}
