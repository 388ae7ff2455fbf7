// Package api serves the read-only status of a running curation session.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	mux      *http.ServeMux
	handlers *Handlers
	logger   *slog.Logger
}

// NewRouter wires the status handlers. metrics may be nil when no exporter
// is configured; /metrics is then not served.
func NewRouter(session StatusSource, metrics http.Handler, logger *slog.Logger) *Router {
	r := &Router{
		mux:      http.NewServeMux(),
		handlers: NewHandlers(session),
		logger:   logger,
	}
	r.setupRoutes(metrics)
	return r
}

// MetricsHandler is the Prometheus scrape handler for the default registry,
// which the OpenTelemetry exporter registers with.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

func (r *Router) setupRoutes(metrics http.Handler) {
	r.mux.HandleFunc("GET /health", r.handlers.Health)
	r.mux.HandleFunc("GET /api/health", r.handlers.Health)
	r.mux.HandleFunc("GET /api/status", r.handlers.Status)
	if metrics != nil {
		r.mux.Handle("GET /metrics", metrics)
	}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if req.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.mux.ServeHTTP(w, req)

	r.logger.Debug("http request",
		"method", req.Method,
		"path", req.URL.Path,
		"duration", time.Since(start),
	)
}
