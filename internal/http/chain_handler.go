package httpapi

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jorgedurante-source/taller-sub000/internal/domain"
	"github.com/jorgedurante-source/taller-sub000/internal/federation"
	"github.com/jorgedurante-source/taller-sub000/internal/repository"
)

// ChainUserHeader 报表请求方（连锁用户 id）
const ChainUserHeader = "X-Chain-User-ID"

type ChainHandler struct {
	engine         *federation.Engine
	registry       repository.ChainRegistry
	perTenantLimit int
	logger         *zap.Logger
}

func NewChainHandler(engine *federation.Engine, registry repository.ChainRegistry, perTenantLimit int, logger *zap.Logger) *ChainHandler {
	return &ChainHandler{
		engine:         engine,
		registry:       registry,
		perTenantLimit: perTenantLimit,
		logger:         logger,
	}
}

func (h *ChainHandler) fail(w http.ResponseWriter, chainID string, err error) {
	if errors.Is(err, repository.ErrChainNotFound) {
		writeJSON(w, http.StatusNotFound, Fail("chain not found"))
		return
	}
	h.logger.Error("Chain query failed", zap.String("chain_id", chainID), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, Fail("failed to query chain"))
}

func (h *ChainHandler) ListOrders(w http.ResponseWriter, r *http.Request, chainID string) {
	limit := parseInt(r.URL.Query().Get("limit"), h.perTenantLimit)
	view, err := h.engine.UnifiedOrders(r.Context(), chainID, limit)
	if err != nil {
		h.fail(w, chainID, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(view))
}

func (h *ChainHandler) ListAppointments(w http.ResponseWriter, r *http.Request, chainID string) {
	from := time.Now().UTC()
	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid from, expected RFC3339"))
			return
		}
		from = t
	}
	limit := parseInt(r.URL.Query().Get("limit"), h.perTenantLimit)
	view, err := h.engine.UnifiedAppointments(r.Context(), chainID, from, limit)
	if err != nil {
		h.fail(w, chainID, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(view))
}

func (h *ChainHandler) ClientDirectory(w http.ResponseWriter, r *http.Request, chainID string) {
	view, err := h.engine.ClientDirectory(r.Context(), chainID)
	if err != nil {
		h.fail(w, chainID, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(view))
}

func (h *ChainHandler) TrackOrder(w http.ResponseWriter, r *http.Request, chainID, token string) {
	tracked, errs, err := h.engine.TrackOrder(r.Context(), chainID, token)
	if err != nil {
		h.fail(w, chainID, err)
		return
	}
	if tracked == nil {
		msg := "order not found"
		if len(errs) > 0 {
			// 有门店查询失败时无法断定订单不存在
			msg = "order not found in reachable tenants"
		}
		writeJSON(w, http.StatusNotFound, Fail(msg))
		return
	}
	writeJSON(w, http.StatusOK, Ok(tracked))
}

// Report 未带用户头或用户不属于该连锁时只返回数量，不返回金额
func (h *ChainHandler) Report(w http.ResponseWriter, r *http.Request, chainID string) {
	var viewer domain.ChainUser
	if userID := r.Header.Get(ChainUserHeader); userID != "" {
		u, err := h.registry.GetChainUser(r.Context(), userID)
		if err != nil && !errors.Is(err, repository.ErrChainUserNotFound) {
			h.fail(w, chainID, err)
			return
		}
		if u != nil {
			viewer = *u
		}
	}

	report, err := h.engine.ChainReport(r.Context(), chainID, viewer)
	if err != nil {
		h.fail(w, chainID, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(report))
}
