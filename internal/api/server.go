// Package api exposes the watch, monitor and valuation operations over
// HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fevolq/money/internal/app"
	"github.com/fevolq/money/internal/config"
	"github.com/fevolq/money/internal/metrics"
)

// Server represents the HTTP server for the service
type Server struct {
	httpServer *http.Server
	app        *app.App
	logger     *zap.Logger
	mux        *http.ServeMux
	handler    http.Handler
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, a *app.App, logger *zap.Logger) *Server {
	mux := http.NewServeMux()
	handler := metrics.HTTPMiddleware(a.Metrics())(mux)

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		app:     a,
		logger:  logger,
		mux:     mux,
		handler: handler,
	}

	s.setupRoutes(cfg)
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg *config.Config) {
	s.mux.HandleFunc("GET /api/worth/{class}", s.handleWorth)
	s.mux.HandleFunc("GET /api/names/{class}", s.handleNames)
	s.mux.HandleFunc("GET /api/snapshot/{class}", s.handleSnapshot)
	s.mux.HandleFunc("/api/watch/{class}", s.handleWatch)
	s.mux.HandleFunc("/api/monitor/{class}", s.handleMonitor)
	s.mux.HandleFunc("/api/history/{class}", s.handleHistory)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.Handle("/ws", s.app.Hub())

	if cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle(path, promhttp.HandlerFor(s.app.Metrics().Registry, promhttp.HandlerOpts{}))
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the full handler chain for tests.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
