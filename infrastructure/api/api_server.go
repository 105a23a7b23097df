package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	v1 "github.com/harmonium-fm/harmonium/infrastructure/api/v1"
	"github.com/harmonium-fm/harmonium/internal/metrics"
)

// APIServer exposes the search services over HTTP.
type APIServer struct {
	tracks      v1.TrackSearcher
	users       v1.UserSearcher
	metrics     *metrics.Metrics
	corsOrigins []string
	server      *Server
	router      chi.Router
	logger      *slog.Logger
}

// APIServerOption configures the APIServer.
type APIServerOption func(*APIServer)

// WithAPIMetrics exposes the given collector on /metrics.
func WithAPIMetrics(m *metrics.Metrics) APIServerOption {
	return func(a *APIServer) { a.metrics = m }
}

// WithCORSOrigins sets the allowed CORS origins. Empty means same-origin only.
func WithCORSOrigins(origins []string) APIServerOption {
	return func(a *APIServer) { a.corsOrigins = origins }
}

// WithAPILogger sets the logger.
func WithAPILogger(logger *slog.Logger) APIServerOption {
	return func(a *APIServer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAPIServer creates a new APIServer over the given search services.
func NewAPIServer(tracks v1.TrackSearcher, users v1.UserSearcher, opts ...APIServerOption) *APIServer {
	a := &APIServer{
		tracks: tracks,
		users:  users,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// mountRoutes wires all routes on the given router.
func (a *APIServer) mountRoutes(router chi.Router) {
	if len(a.corsOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: a.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Correlation-ID"},
			ExposedHeaders: []string{"X-Correlation-ID"},
			MaxAge:         300,
		}))
	}

	searchRouter := v1.NewSearchRouter(a.tracks, a.users, a.logger)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(60 * time.Second))
		r.Mount("/search", searchRouter.Routes())
	})

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if a.metrics != nil {
		router.Method(http.MethodGet, "/metrics", a.metrics.Handler())
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (a *APIServer) ListenAndServe(addr string) error {
	server := NewServer(addr, a.logger)
	a.server = &server
	a.mountRoutes(server.Router())
	return server.Start()
}

// Shutdown gracefully shuts down the server.
func (a *APIServer) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// Handler returns the routes as an http.Handler for use with custom servers.
func (a *APIServer) Handler() http.Handler {
	if a.router == nil {
		a.router = chi.NewRouter()
		a.mountRoutes(a.router)
	}
	return a.router
}
