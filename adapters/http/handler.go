// Package http assembles the public HTTP server: shared middleware, health
// and metrics endpoints, API documentation and the catalog channel.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/artpar/stacgate/adapters/metrics"
	"github.com/artpar/stacgate/core/openapi"
	"github.com/artpar/stacgate/pkg/apierror"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// DefaultTimeout bounds the handling time of one request.
const DefaultTimeout = 60 * time.Second

// VersionResponse represents the version endpoint response.
type VersionResponse struct {
	Version string `json:"version"`
	Service string `json:"service"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Mounter registers routes on a router. The catalog channel implements it.
type Mounter interface {
	Mount(r chi.Router)
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	backend Pinger
	timeout time.Duration
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(backend Pinger) *HealthHandler {
	return &HealthHandler{backend: backend, timeout: 5 * time.Second}
}

// Liveness returns OK while the process is running.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	apierror.WriteJSON(w, http.StatusOK, apierror.ContentType, HealthResponse{Status: "ok"})
}

// Readiness checks the storage backend.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if h.backend != nil {
		if err := h.backend.Ping(ctx); err != nil {
			apierror.WriteJSON(w, http.StatusServiceUnavailable, apierror.ContentType,
				HealthResponse{Status: "unhealthy", Error: err.Error()})
			return
		}
	}
	apierror.WriteJSON(w, http.StatusOK, apierror.ContentType, HealthResponse{Status: "ok"})
}

// VersionHandler returns a handler reporting the build version.
func VersionHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apierror.WriteJSON(w, http.StatusOK, apierror.ContentType, VersionResponse{
			Version: version,
			Service: "stacgate",
		})
	}
}

// RouterConfig holds the components served by the router.
type RouterConfig struct {
	// Channel serves the catalog routes. Required.
	Channel Mounter

	Health  *HealthHandler
	Metrics *metrics.Collector

	// OpenAPI is served at /api and rendered at /api.html when set.
	OpenAPI *openapi.Spec

	Version string
	Timeout time.Duration
}

// NewRouter creates the main HTTP router.
func NewRouter(cfg RouterConfig, logger zerolog.Logger) chi.Router {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Timeout))
	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, apierror.NotFound("no route for "+r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, apierror.MethodNotAllowed(r.Method, r.URL.Path))
	})

	if cfg.Health != nil {
		r.Get("/health", cfg.Health.Liveness)
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Get("/version", VersionHandler(cfg.Version))

	if cfg.OpenAPI != nil {
		doc, err := cfg.OpenAPI.ToJSON()
		if err != nil {
			logger.Error().Err(err).Msg("openapi document not served")
		} else {
			r.Get("/api", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/vnd.oai.openapi+json;version=3.0")
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Write(doc)
			})
			r.Get("/api.html", func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "/api.html/index.html", http.StatusMovedPermanently)
			})
			r.Get("/api.html/*", httpSwagger.Handler(httpSwagger.URL("/api")))
		}
	}

	cfg.Channel.Mount(r)
	return r
}

func writeError(w http.ResponseWriter, r *http.Request, e apierror.Error) {
	e.RequestID = middleware.GetReqID(r.Context())
	apierror.Write(w, e)
}

