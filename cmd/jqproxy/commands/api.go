package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hayasaka/jqproxy/internal/api"
	"github.com/hayasaka/jqproxy/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the proxy API server",
	Long: `Start the HTTP proxy server.

Endpoints:
  GET  /health                              - Health check (unauthenticated)
  POST /api/auth/refresh                    - Force ID token refresh
  GET  /api/prices/daily                    - Daily price bars
  GET  /api/listed/info                     - Listed instrument info
  GET  /api/fins/statements                 - Financial statements
  GET  /api/markets/weekly_margin_interest  - Weekly margin interest
  GET  /api/markets/daily_margin_interest   - Daily public margin interest
  GET  /api/markets/trading_calendar        - Trading calendar
  GET  /api/screen                          - Screening pipeline
  POST /api/screen/snapshot                 - Persist a screening run

Example:
  go run ./cmd/jqproxy api
  go run ./cmd/jqproxy api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "override the configured API port")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, cleanup, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if apiPort != "" {
		app.cfg.Port = apiPort
	}

	router := api.NewRouter(app.cfg, api.Deps{
		Health: handlers.NewHealthHandler(app.cfg, app.tokens),
		Auth:   handlers.NewAuthHandler(app.tokens, app.log),
		Data:   handlers.NewDataHandler(app.client, app.log),
		Screen: handlers.NewScreenHandler(app.screener, app.repo, app.log),
	}, app.log)

	server := api.New(app.cfg, app.log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		app.log.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
