package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/cedisense/cedisense-bfa/internal/domain"
	"github.com/cedisense/cedisense-bfa/internal/infra/observability"
	"github.com/cedisense/cedisense-bfa/internal/infra/session"
	"github.com/cedisense/cedisense-bfa/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter creates the HTTP router with all routes and middleware.
// store may be nil when the in-memory backend is in use.
func NewRouter(svc *service.ReconciliationService, store Pinger, verifier *session.Verifier, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(store))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(SessionMiddleware(verifier, logger))

		// Category catalog
		r.Get("/categories", listCategoriesHandler(svc))
		r.Get("/categories/{idOrName}", getCategoryHandler(svc, logger))
		r.Post("/categories/suggest", suggestCategoryHandler(svc, logger))

		// Transfer detection
		r.Post("/transfers/detect", detectTransferHandler(svc, logger))

		// Reconciliation
		r.Get("/wallets", listWalletsHandler(svc, logger))
		r.Get("/transactions/unmatched", listUnmatchedHandler(svc, logger))
		r.With(RequireSession).Post("/transactions/{id}/assign", assignHandler(svc, logger))
		r.Post("/transactions/{id}/transfer", transferHandler(svc, logger))

		r.Get("/metrics/reconcile", reconcileMetricsHandler(metrics))
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "bfa-api", Status: "healthy", LastChecked: now},
		}

		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			start := time.Now()
			err := store.Ping(ctx)
			status := "healthy"
			if err != nil {
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "supabase", Status: status,
				LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status != "healthy" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func reconcileMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
