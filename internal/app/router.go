package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dentaflow/dentaflow-stock/internal/alerts"
	"github.com/dentaflow/dentaflow-stock/internal/audit"
	"github.com/dentaflow/dentaflow-stock/internal/catalog"
	"github.com/dentaflow/dentaflow-stock/internal/forecast"
	"github.com/dentaflow/dentaflow-stock/internal/ledger"
	"github.com/dentaflow/dentaflow-stock/internal/observability"
	"github.com/dentaflow/dentaflow-stock/internal/stocktake"
	"github.com/dentaflow/dentaflow-stock/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	CatalogHandler   *catalog.Handler
	LedgerHandler    *ledger.Handler
	ForecastHandler  *forecast.Handler
	AlertsHandler    *alerts.Handler
	StocktakeHandler *stocktake.Handler
	AuditHandler     *audit.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router for the stock API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RequireActor(params.Logger))

		r.Route("/products", func(r chi.Router) {
			params.CatalogHandler.MountRoutes(r)
			params.LedgerHandler.MountRoutes(r)
			params.ForecastHandler.MountRoutes(r)
		})
		r.Route("/alerts", params.AlertsHandler.MountRoutes)
		r.Route("/stocktakes", params.StocktakeHandler.MountRoutes)
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
