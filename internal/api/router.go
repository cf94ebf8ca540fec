package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/eprhub/prn-integration/internal/api/handler"
	apimw "github.com/eprhub/prn-integration/internal/api/middleware"
	"github.com/eprhub/prn-integration/internal/service"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	svc *service.SyncService,
	reg prometheus.Gatherer,
	ping func(ctx context.Context) error,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	sh := handler.NewSyncHandler(svc, logger)
	hh := handler.NewHealthHandler(ping)

	// --- routes ---
	r.Get("/health", hh.Health)
	r.Get("/ready", hh.Ready)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		// Manual one-shot runs of the scheduled stages
		r.Post("/sync/prns", sh.TriggerFetch)
		r.Post("/sync/producers", sh.TriggerPush)
		r.Get("/sync/cursors", sh.Cursors)

		// Queue inspection
		r.Get("/queue/depths", sh.QueueDepths)
		r.Get("/queue/errors", sh.DeadLetters)
	})

	return r
}
