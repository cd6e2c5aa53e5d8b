// Package api implements the HTTP surface of the scoring service.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opensource-finance/caracara/internal/alerting"
	"github.com/opensource-finance/caracara/internal/domain"
	"github.com/opensource-finance/caracara/internal/engine"
	"github.com/opensource-finance/caracara/internal/metrics"
	"github.com/opensource-finance/caracara/internal/registry"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, bus domain.EventBus, eng *engine.Engine, alerts *alerting.Engine, reg *registry.Registry, collector *metrics.Collector, seed domain.SeedConfig, version string) *Server {
	handler := NewHandler(repo, cache, bus, eng, alerts, reg, collector, seed, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// Prometheus exposition
	if collector != nil {
		router.Handle("/metrics", collector.Handler())
	}

	// Simulated regulator registry
	router.Route("/mocks", func(r chi.Router) {
		r.Get("/institutions", handler.ListInstitutions)
		r.Get("/institutions/{taxid}", handler.GetInstitution)
	})

	router.Route("/v1", func(r chi.Router) {
		// Batch analysis
		r.Post("/analyze", handler.Analyze)

		// Dataset lifecycle
		r.Post("/dataset/seed", handler.SeedDataset)
		r.Get("/dataset/status", handler.DatasetStatus)
		r.Delete("/dataset", handler.ClearDataset)

		// Reporting over the stored dataset
		r.Get("/reports/frauds", handler.FraudReport)

		// BI analytics
		r.Get("/analytics/summary", handler.DatasetAnalytics)
		r.Get("/analytics/fraud-distribution", handler.FraudDistribution)
		r.Get("/analytics/top-creditors", handler.TopCreditors)

		// Alert rule management
		r.Get("/alert-rules", handler.ListAlertRules)
		r.Get("/alert-rules/{id}", handler.GetAlertRule)
		r.Post("/alert-rules", handler.CreateAlertRule)
		r.Delete("/alert-rules/{id}", handler.DeleteAlertRule)
		r.Post("/alert-rules/reload", handler.ReloadAlertRules)

		// Investigation verdicts
		r.Get("/verdicts", handler.ListVerdicts)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
