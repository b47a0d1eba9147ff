package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"monit-collector/internal/collector"
	"monit-collector/internal/config"
	"monit-collector/internal/models"
	"monit-collector/internal/store"
)

// ServiceLister and ReportReader are implemented by *store.Store.
type ServiceLister interface {
	ListServices(context.Context, store.ServiceFilter) ([]models.ServiceStatus, error)
}

type ReportReader interface {
	RawReport(context.Context, uuid.UUID) ([]byte, error)
}

type AgentLister interface {
	List() []models.Agent
}

// Deps are the collaborators of the router. Store and Agents may be nil, in
// which case their routes are not mounted.
type Deps struct {
	Config     *config.Config
	Dispatcher *collector.Dispatcher
	Store      interface {
		ServiceLister
		ReportReader
	}
	Agents AgentLister
	Checks []Check
	Logger *slog.Logger
}

func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := d.Config

	r := chi.NewRouter()

	r.Use(LoggingMiddleware(logger))
	r.Use(RecoverMiddleware(logger))

	r.Get("/health", HealthHandler(d.Checks...))
	r.Get("/version", VersionHandler())
	r.Handle("/metrics", promhttp.Handler())

	// Monit agents post here
	r.With(
		RateLimitMiddleware(cfg.Collector.RateLimit.RPS, cfg.Collector.RateLimit.Burst),
		CollectorBasicAuth(cfg),
	).Post("/collector", CollectorHandler(cfg, d.Dispatcher, logger))

	r.Route("/api", func(api chi.Router) {
		read := api.With(APIKeyAuth(cfg, config.RoleRead))
		admin := api.With(APIKeyAuth(cfg, config.RoleAdmin))
		if d.Store != nil {
			read.Get("/services", ServicesHandler(d.Store))
			admin.Get("/reports/{id}/raw", RawReportHandler(d.Store))
		}
		if d.Agents != nil {
			read.Get("/agents", AgentsHandler(d.Agents))
		}
	})

	return r
}
