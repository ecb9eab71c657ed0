package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/jorgedurante-source/taller-sub000/internal/domain"
	"github.com/jorgedurante-source/taller-sub000/internal/repository"
)

type SyncHandler struct {
	jobs   repository.JobStore
	logger *zap.Logger
}

func NewSyncHandler(jobs repository.JobStore, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{jobs: jobs, logger: logger}
}

// ListJobs ?status=pending|done|failed&target=slug&limit=100
func (h *SyncHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.JobFilter{
		Status:     domain.JobStatus(q.Get("status")),
		TargetSlug: q.Get("target"),
		Limit:      parseInt(q.Get("limit"), 100),
	}
	switch filter.Status {
	case "", domain.JobPending, domain.JobDone, domain.JobFailed:
	default:
		writeJSON(w, http.StatusBadRequest, Fail("invalid status"))
		return
	}

	jobs, err := h.jobs.ListJobs(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list sync jobs", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to list sync jobs"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"items": jobs, "total": len(jobs)}))
}

func (h *SyncHandler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.jobs.CountByStatus(r.Context())
	if err != nil {
		h.logger.Error("Failed to count sync jobs", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to count sync jobs"))
		return
	}
	out := map[domain.JobStatus]int{domain.JobPending: 0, domain.JobDone: 0, domain.JobFailed: 0}
	for status, n := range counts {
		out[status] = n
	}
	writeJSON(w, http.StatusOK, Ok(out))
}
