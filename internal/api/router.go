package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/classboard/notify-worker/internal/api/handler"
	apimw "github.com/classboard/notify-worker/internal/api/middleware"
	"github.com/classboard/notify-worker/internal/dispatcher"
	"github.com/classboard/notify-worker/internal/service"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	d *dispatcher.Dispatcher,
	svc *service.QueueService,
	observeRun func(time.Duration),
	reg prometheus.Gatherer,
	triggerSecret string,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))
	r.Use(apimw.CORS) // scheduler / dashboard preflight

	// --- handler instances ---
	dh := handler.NewDispatchHandler(d, observeRun, logger)
	qh := handler.NewQueueHandler(svc, logger)
	hh := handler.NewHealthHandler()

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		// Mutating endpoints sit behind the shared-secret check.
		r.Group(func(r chi.Router) {
			r.Use(apimw.BearerAuth(triggerSecret))
			r.Post("/dispatch", dh.Dispatch)
			r.Post("/queue/cancel", qh.Cancel)
		})

		// Inspection — note: /queue/stats must be registered before
		// /queue/{id} so chi does not treat the literal "stats" as an ID.
		r.Get("/queue/stats", qh.Stats)
		r.Get("/queue", qh.List)
		r.Get("/queue/{id}", qh.GetByID)
	})

	return r
}
