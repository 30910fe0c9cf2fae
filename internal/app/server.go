package app

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/stacklok/coordination-registry/internal/service"
	"github.com/stacklok/coordination-registry/internal/telemetry"
	"github.com/stacklok/coordination-registry/internal/versions"
)

// newOpsRouter serves the health, readiness, status, version and metrics endpoints
func newOpsRouter(
	svc service.Service,
	logger *zap.Logger,
	metrics *telemetry.HTTPMetrics,
	metricsHandler http.Handler,
	requestTimeout time.Duration,
) http.Handler {
	r := chi.NewRouter()

	// Metrics first so requests rejected further down are counted too
	r.Use(metrics.Middleware)
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(requestTimeout),
		loggingMiddleware(logger),
	)

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(svc, logger))
	r.Get("/status", statusHandler(svc, logger))
	r.Get("/version", versionHandler(logger))
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	return r
}

// loggingMiddleware logs every request at debug level
func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

func readinessHandler(svc service.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CheckReadiness(r.Context()); err != nil {
			writeJSON(w, logger, http.StatusServiceUnavailable, map[string]string{
				"error": "registry not ready: " + err.Error(),
			})
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func statusHandler(svc service.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, svc.GetStatus(r.Context()))
	}
}

func versionHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, logger, http.StatusOK, versions.GetVersionInfo())
	}
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}
