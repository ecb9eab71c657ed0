package httpapi

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	chainPrefix = "/chain/api/v1/chains/"
	jobsPath    = "/sync/api/v1/jobs"
)

// Router 使用标准库 http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口（用于 /metrics 等）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}

// RegisterChainRoutes 连锁统一视图
//
//	GET /chain/api/v1/chains/{id}/orders
//	GET /chain/api/v1/chains/{id}/orders/track/{token}
//	GET /chain/api/v1/chains/{id}/appointments
//	GET /chain/api/v1/chains/{id}/clients
//	GET /chain/api/v1/chains/{id}/report
func (r *Router) RegisterChainRoutes(c *ChainHandler) {
	r.Handle(chainPrefix, getOnly(func(w http.ResponseWriter, req *http.Request) {
		parts := strings.Split(strings.Trim(strings.TrimPrefix(req.URL.Path, chainPrefix), "/"), "/")
		if len(parts) < 2 || parts[0] == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		chainID := parts[0]

		switch {
		case len(parts) == 2 && parts[1] == "orders":
			c.ListOrders(w, req, chainID)
		case len(parts) == 4 && parts[1] == "orders" && parts[2] == "track" && parts[3] != "":
			c.TrackOrder(w, req, chainID, parts[3])
		case len(parts) == 2 && parts[1] == "appointments":
			c.ListAppointments(w, req, chainID)
		case len(parts) == 2 && parts[1] == "clients":
			c.ClientDirectory(w, req, chainID)
		case len(parts) == 2 && parts[1] == "report":
			c.Report(w, req, chainID)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// RegisterSyncRoutes 同步任务表（只读）
func (r *Router) RegisterSyncRoutes(s *SyncHandler) {
	r.Handle(jobsPath, getOnly(s.ListJobs))
	r.Handle(jobsPath+"/stats", getOnly(s.Stats))
}

// RegisterOpsRoutes /healthz 与 /metrics
func (r *Router) RegisterOpsRoutes(gatherer prometheus.Gatherer) {
	r.Handle("/healthz", getOnly(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	}))
	if gatherer != nil {
		r.HandleHandler("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
}
