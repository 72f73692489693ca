package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/helios/internal/api"
	"github.com/wonny/helios/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the HTTP API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                - health check
  POST /api/analyze           - run the pipeline for one symbol
  POST /api/scan              - run a universe sweep
  GET  /api/recommendations   - stored recommendation history

Example:
  go run ./cmd/helios api
  go run ./cmd/helios api --port 8091`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Helios API Server ===")

	ctx := context.Background()

	a, err := initApp(ctx, appOptions{connectFeed: true})
	if err != nil {
		return err
	}
	defer a.close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	// Typed nil stays out of the interface when the DB is disabled
	var recs handlers.RecommendationLister
	if a.repo != nil {
		recs = a.repo
	}

	analysisHandler := handlers.NewAnalysisHandler(a.scanner, a.scanner, recs, a.logger)
	router := api.NewRouter(analysisHandler, a.logger)
	server := api.New(a.cfg, a.logger, router)

	go func() {
		if err := server.Start(); err != nil {
			a.logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  POST /api/analyze")
	fmt.Println("  POST /api/scan")
	fmt.Println("  GET  /api/recommendations")
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	a.logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.logger.Info("Server stopped")
	return nil
}
