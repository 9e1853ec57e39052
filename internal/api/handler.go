// Package api provides the HTTP surface of the tabular store.
package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"tabula/internal/domain"
	"tabula/internal/middleware"
)

// DatasetService is the ingestion surface used by the dataset handlers.
type DatasetService interface {
	Upload(ctx context.Context, req domain.UploadRequest, r io.Reader) (*domain.Dataset, error)
	List(ctx context.Context, page domain.PageRequest) ([]domain.Dataset, int64, error)
	Get(ctx context.Context, id string) (*domain.Dataset, error)
	Schema(ctx context.Context, id string) (*domain.Dataset, []domain.ColumnInfo, error)
}

// QueryService is the ad-hoc query surface.
type QueryService interface {
	Execute(ctx context.Context, datasetID *string, sql string) (*domain.QueryResult, error)
	ListHistory(ctx context.Context, limit int, status *domain.QueryStatus) ([]domain.QueryRecord, error)
}

// DashboardService is the dashboard and panel surface.
type DashboardService interface {
	CreateDashboard(ctx context.Context, req domain.CreateDashboardRequest) (*domain.Dashboard, error)
	ListDashboards(ctx context.Context, page domain.PageRequest) ([]domain.Dashboard, int64, error)
	GetDashboard(ctx context.Context, id string) (*domain.Dashboard, []domain.Panel, error)
	UpdateDashboard(ctx context.Context, id string, req domain.UpdateDashboardRequest) (*domain.Dashboard, error)
	DeleteDashboard(ctx context.Context, id string) error
	CreatePanel(ctx context.Context, dashboardID string, req domain.CreatePanelRequest) (*domain.Panel, error)
	ListPanels(ctx context.Context, dashboardID string) ([]domain.Panel, error)
	UpdatePanel(ctx context.Context, dashboardID, panelID string, req domain.UpdatePanelRequest) (*domain.Panel, error)
	DeletePanel(ctx context.Context, dashboardID, panelID string) error
	Run(ctx context.Context, dashboardID string) (*domain.PanelRun, error)
	LastRun(ctx context.Context, dashboardID string) (*domain.PanelRun, error)
}

// Handler serves the /v1 API.
type Handler struct {
	datasets       DatasetService
	query          QueryService
	dashboards     DashboardService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewHandler creates a Handler. maxUploadBytes bounds multipart uploads.
func NewHandler(datasets DatasetService, query QueryService, dashboards DashboardService, maxUploadBytes int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 64 << 20
	}
	return &Handler{
		datasets:       datasets,
		query:          query,
		dashboards:     dashboards,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With("component", "api"),
	}
}

// Routes registers the API routes on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/datasets", func(r chi.Router) {
		r.Post("/", h.UploadDataset)
		r.Get("/", h.ListDatasets)
		r.Get("/{datasetID}", h.GetDataset)
		r.Get("/{datasetID}/schema", h.GetDatasetSchema)
	})

	r.Post("/query", h.ExecuteQuery)
	r.Get("/query/history", h.ListQueryHistory)

	r.Route("/dashboards", func(r chi.Router) {
		r.Post("/", h.CreateDashboard)
		r.Get("/", h.ListDashboards)
		r.Route("/{dashboardID}", func(r chi.Router) {
			r.Get("/", h.GetDashboard)
			r.Patch("/", h.UpdateDashboard)
			r.Delete("/", h.DeleteDashboard)
			r.Post("/panels", h.CreatePanel)
			r.Get("/panels", h.ListPanels)
			r.Patch("/panels/{panelID}", h.UpdatePanel)
			r.Delete("/panels/{panelID}", h.DeletePanel)
			r.Post("/run", h.RunDashboard)
			r.Get("/last-run", h.LastRun)
		})
	})
}

// RouterConfig configures the HTTP middleware stack.
type RouterConfig struct {
	Validator      middleware.JWTValidator
	AllowedOrigins []string
	RateLimit      middleware.RateLimitConfig
	Logger         *slog.Logger
}

// NewRouter builds the full HTTP handler: public health check plus the
// authenticated /v1 API.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if cfg.RateLimit.RequestsPerSecond > 0 {
		r.Use(middleware.RateLimiter(cfg.RateLimit))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(cfg.Validator, cfg.Logger))
		h.Routes(r)
	})
	return r
}
