// Package server exposes the planner over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rsned/production-planner/internal/logger"
	"github.com/rsned/production-planner/internal/metrics"
	"github.com/rsned/production-planner/internal/planner/engine"
	"github.com/rsned/production-planner/pkg/planner"
)

// UserStore persists per-user recipe configuration and production lines.
type UserStore interface {
	LoadSelection(ctx context.Context, userKey string) (planner.RecipeSelection, error)
	SaveSelection(ctx context.Context, userKey string, updates []planner.RecipeConfig) error
	LoadProductionLines(ctx context.Context, userKey string) ([]planner.ProductionLine, error)
	GetProductionLine(ctx context.Context, userKey, lineID string) (*planner.ProductionLine, error)
	SaveProductionLine(ctx context.Context, userKey string, line planner.ProductionLine) error
}

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators the HTTP handlers call.
type Deps struct {
	Engine *engine.Engine
	Users  UserStore
	DB     Pinger
	Logger *slog.Logger
}

// Server is the planner HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
}

// NewServer creates a server listening on addr.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	h := &handlers{deps: deps}

	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Use(loggingMiddleware(deps.Logger))

	// Health check routes (unversioned)
	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)

	// Metrics endpoint (public, for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/optimize", h.optimize)

		r.Get("/recipes", h.searchRecipes)
		r.Get("/recipes/{id}", h.getRecipe)
		r.Get("/items/{id}/uses", h.itemUses)

		// Per-user routes take the user key as a bearer token.
		r.Group(func(r chi.Router) {
			r.Use(bearerUser)

			r.Get("/selection", h.getSelection)
			r.Patch("/selection", h.updateSelection)

			r.Get("/lines", h.listLines)
			r.Put("/lines/{line}", h.saveLine)
			r.Post("/lines/{line}/optimize", h.optimizeLine)
		})
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		handler: r,
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type ctxKey string

const userKeyCtx ctxKey = "userKey"

// bearerUser reads the user key from "Authorization: Bearer <key>".
func bearerUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			respondError(w, http.StatusUnauthorized, CodeUnauthorized, "Missing bearer user key")
			return
		}
		ctx := context.WithValue(r.Context(), userKeyCtx, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userKey(ctx context.Context) string {
	key, _ := ctx.Value(userKeyCtx).(string)
	return key
}

// statusWriter captures the status code for request logging.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip logging for health check endpoints and metrics
			if strings.HasPrefix(r.URL.Path, "/healthz") ||
				strings.HasPrefix(r.URL.Path, "/readyz") ||
				strings.HasPrefix(r.URL.Path, "/metrics") {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = logger.GenerateRequestID()
			}
			ctx := logger.WithRequestID(r.Context(), requestID)
			r = r.WithContext(ctx)
			w.Header().Set("X-Request-ID", requestID)

			log := logger.FromContext(ctx, base)
			log.Info("Request started", "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			log.Info("Request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start))
		})
	}
}
