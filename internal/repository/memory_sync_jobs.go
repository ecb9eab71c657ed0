package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jorgedurante-source/taller-sub000/internal/domain"
)

// MemoryJobStore 内存任务表（开发环境 / 测试）
type MemoryJobStore struct {
	mu   sync.Mutex
	seq  int64
	jobs map[string]*memoryJob
}

type memoryJob struct {
	job domain.SyncJob
	seq int64
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: map[string]*memoryJob{}}
}

func (s *MemoryJobStore) InsertJobs(_ context.Context, jobs []domain.SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range jobs {
		if _, ok := s.jobs[j.ID]; ok {
			return fmt.Errorf("failed to insert sync job: duplicate id %s", j.ID)
		}
	}
	for _, j := range jobs {
		s.seq++
		j.Payload = append([]byte(nil), j.Payload...)
		s.jobs[j.ID] = &memoryJob{job: j, seq: s.seq}
	}
	return nil
}

// sorted 按 created_at、插入顺序排序
func (s *MemoryJobStore) sorted() []*memoryJob {
	all := make([]*memoryJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		all = append(all, j)
	}
	sort.Slice(all, func(i, k int) bool {
		if !all[i].job.CreatedAt.Equal(all[k].job.CreatedAt) {
			return all[i].job.CreatedAt.Before(all[k].job.CreatedAt)
		}
		return all[i].seq < all[k].seq
	})
	return all
}

func (s *MemoryJobStore) ClaimPending(_ context.Context, limit, maxAttempts int) ([]domain.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.SyncJob{}
	for _, j := range s.sorted() {
		if len(out) >= limit {
			break
		}
		if j.job.Status == domain.JobPending && j.job.Attempts < maxAttempts {
			out = append(out, j.job)
		}
	}
	return out, nil
}

func (s *MemoryJobStore) pending(id string) (*memoryJob, error) {
	j, ok := s.jobs[id]
	if !ok || j.job.Status != domain.JobPending {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return j, nil
}

func (s *MemoryJobStore) MarkDone(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.pending(id)
	if err != nil {
		return err
	}
	j.job.Status = domain.JobDone
	j.job.ProcessedAt = &at
	return nil
}

func (s *MemoryJobStore) MarkAttemptFailed(_ context.Context, id string, attempts int, status domain.JobStatus, message string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.pending(id)
	if err != nil {
		return err
	}
	j.job.Attempts = attempts
	j.job.Status = status
	j.job.ErrorMessage = message
	if status == domain.JobFailed {
		j.job.ProcessedAt = &at
	}
	return nil
}

func (s *MemoryJobStore) GetJob(_ context.Context, id string) (*domain.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	job := j.job
	return &job, nil
}

// ListJobs 最新的在前
func (s *MemoryJobStore) ListJobs(_ context.Context, filter JobFilter) ([]domain.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.sorted()
	out := []domain.SyncJob{}
	for i := len(all) - 1; i >= 0; i-- {
		j := all[i].job
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		if filter.TargetSlug != "" && j.TargetSlug != filter.TargetSlug {
			continue
		}
		out = append(out, j)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryJobStore) CountByStatus(_ context.Context) (map[domain.JobStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := map[domain.JobStatus]int{}
	for _, j := range s.jobs {
		counts[j.job.Status]++
	}
	return counts, nil
}
