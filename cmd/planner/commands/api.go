package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/wielermanager/internal/api"
	"github.com/wonny/wielermanager/internal/api/handlers"
	"github.com/wonny/wielermanager/internal/collector"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                  - Health check
  GET  /metrics                 - Prometheus metrics
  GET  /api/riders              - Riders of the latest snapshot
  GET  /api/races               - Race calendar of the latest snapshot
  POST /api/solve               - Optimize the season (MILP)
  POST /api/solve/rank          - Rank-based squads per race
  GET  /api/plans/{id}          - Stored plan
  GET  /api/plans/{id}/realized - Plan scored against actual results
  POST /api/collect             - Scrape a fresh snapshot
  POST /api/results             - Pull race results into the snapshot

Example:
  go run ./cmd/planner api
  go run ./cmd/planner api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Wielermanager API Server ===")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	a.log.WithFields(map[string]interface{}{
		"port":    a.cfg.Port,
		"env":     a.cfg.Env,
		"backend": a.cfg.Solver.Backend,
	}).Info("Initializing API server")

	h := api.Handlers{
		Game:    handlers.NewGameHandler(a.snapshots, a.log),
		Solve:   handlers.NewSolveHandler(a.plans, a.snapshots, a.rules.Rules(), a.log),
		Collect: handlers.NewCollectHandler(a.collector, a.snapshots, collector.DefaultConfig(), a.log),
	}
	opts := api.Options{}
	if a.cfg.MetricsEnabled {
		opts.Metrics = a.metrics
	}
	if a.redis.Enabled() {
		opts.Limiter = a.limiter()
	}

	server := api.New(a.cfg, a.log, api.NewRouter(h, opts, a.log))

	go func() {
		if err := server.Start(); err != nil {
			a.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	a.log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	a.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
