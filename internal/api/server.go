package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/wonny/wielermanager/pkg/config"
	"github.com/wonny/wielermanager/pkg/logger"
)

// Server represents the HTTP API server
// ⭐ SSOT: server settings live in this file only
type Server struct {
	httpServer *http.Server
	logger     *logger.Logger
	config     *config.Config
}

// New creates a new API server
func New(cfg *config.Config, log *logger.Logger, router http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: writeTimeout(cfg.Solver.TimeLimit),
			IdleTimeout:  60 * time.Second,
		},
		logger: log,
		config: cfg,
	}
}

// writeTimeout leaves room for a full solve plus response encoding
func writeTimeout(solveLimit time.Duration) time.Duration {
	if solveLimit <= 0 {
		return 2 * time.Minute
	}
	return solveLimit + 30*time.Second
}

// Handler exposes the configured router
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.WithFields(map[string]interface{}{
		"port": s.config.Port,
		"env":  s.config.Env,
	}).Info("Starting API server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
