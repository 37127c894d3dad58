package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestionexus/gestionexus/internal/audit"
	"github.com/gestionexus/gestionexus/internal/catalog"
	"github.com/gestionexus/gestionexus/internal/insights"
	"github.com/gestionexus/gestionexus/internal/layaway"
	"github.com/gestionexus/gestionexus/internal/notifications"
	"github.com/gestionexus/gestionexus/internal/observability"
	"github.com/gestionexus/gestionexus/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger               *slog.Logger
	Config               *Config
	LayawayHandler       *layaway.Handler
	CatalogHandler       *catalog.Handler
	AuditHandler         *audit.Handler
	NotificationsHandler *notifications.Handler
	InsightsHandler      *insights.Handler
	JobsHandler          *jobs.Handler
	Pool                 *pgxpool.Pool
	Metrics              *observability.Metrics
}

// NewRouter constructs the chi.Router serving the JSON API.
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

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if params.Pool != nil {
			if err := params.Pool.Ping(r.Context()); err != nil {
				params.Logger.Error("readiness ping failed", slog.Any("error", err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/layaway", params.LayawayHandler.MountRoutes)
		r.Route("/products", params.CatalogHandler.MountRoutes)
		if params.AuditHandler != nil {
			r.Route("/logs", params.AuditHandler.MountRoutes)
		}
		if params.NotificationsHandler != nil {
			r.Route("/notifications", params.NotificationsHandler.MountRoutes)
		}
		if params.InsightsHandler != nil {
			r.Route("/metrics", params.InsightsHandler.MountRoutes)
		}
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
