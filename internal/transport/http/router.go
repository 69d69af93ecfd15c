// Package httptransport assembles the public HTTP surface. Handlers stay in
// their own modules; this package only mounts them and the middleware chain.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	bulkhandler "drugwatch/internal/bulkcache/handler"
	"drugwatch/internal/platform/middleware"
	queryhandler "drugwatch/internal/query/handler"
	watchhandler "drugwatch/internal/watch/handler"
	"drugwatch/pkg/platform/httputil"
)

// HealthChecker reports backend liveness. A nil checker means the backend is
// not configured and is skipped.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router mounts.
type Deps struct {
	Query  *queryhandler.Handler
	Bulk   *bulkhandler.Handler
	Watch  *watchhandler.Handler
	Redis  HealthChecker
	Logger *slog.Logger
}

// NewRouter wires middleware and all public endpoints.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))

	r.Route("/api/v1", func(api chi.Router) {
		// The progress stream outlives any sane request timeout; everything
		// else gets a hard bound.
		api.Group(func(timed chi.Router) {
			timed.Use(middleware.Timeout(2 * time.Minute))
			d.Query.Register(timed)
			d.Watch.Register(timed)
			timed.Post("/cache/warm", d.Bulk.HandleWarm)
			timed.Get("/cache/status", d.Bulk.HandleStatus)
			timed.Delete("/cache", d.Bulk.HandleClear)
		})
		api.Get("/cache/progress", d.Bulk.HandleProgress)
	})

	r.Get("/healthz", handleHealth(d.Redis))
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func handleHealth(redis HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		if redis != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redis.Health(ctx); err != nil {
				status["status"] = "degraded"
				status["redis"] = err.Error()
				httputil.WriteJSON(w, http.StatusServiceUnavailable, status)
				return
			}
			status["redis"] = "ok"
		}
		httputil.WriteJSON(w, http.StatusOK, status)
	}
}
