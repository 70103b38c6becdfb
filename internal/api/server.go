// Package api provides the HTTP server for tokensage. It exposes the
// prediction endpoints consumed by the form-builder UI, plus an engine
// registry and execution recording for the surrounding SaaS.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tokensage/tokensage/internal/app/predict"
	"github.com/tokensage/tokensage/internal/domain"
)

// Server is the tokensage HTTP API server.
type Server struct {
	predictor      *predict.Service
	store          domain.EngineStore
	metricsEnabled bool
	version        string
}

// NewServer creates a new API server.
func NewServer(predictor *predict.Service, store domain.EngineStore) *Server {
	return &Server{predictor: predictor, store: store, version: "dev"}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetVersion sets the version string reported by /api/version.
func (s *Server) SetVersion(v string) { s.version = v }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware)

	// Health check for load balancers
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": s.version,
		})
	})

	// Prediction + registry endpoints
	r.Route("/v1", func(r chi.Router) {
		r.Post("/predictions", s.handlePredict)
		r.Delete("/predictions/cache", s.handleClearCache)

		r.Post("/engines", s.handleCreateEngine)
		r.Get("/engines", s.handleListEngines)
		r.Get("/engines/{id}", s.handleGetEngine)
		r.Delete("/engines/{id}", s.handleDeleteEngine)
		r.Get("/engines/{id}/prediction", s.handleEnginePrediction)
		r.Post("/engines/{id}/executions", s.handleRecordExecution)

		r.Get("/users/{id}/token-stats", s.handleUserStats)
	})

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers for the browser-embedded form UI.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
