package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hayasaka/jqproxy/internal/scheduler"
	"github.com/hayasaka/jqproxy/internal/scheduler/jobs"
	"github.com/hayasaka/jqproxy/internal/screener"
)

// schedulerCmd runs the background jobs.
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the background job scheduler",
	Long: `Run the cron scheduler:

  token_keepalive     - hourly; keeps the upstream ID token warm
  screening_snapshot  - nightly; persists a screening run (requires DATABASE_URL)

Example:
  go run ./cmd/jqproxy scheduler
  go run ./cmd/jqproxy scheduler --snapshot-min-liquidity 5e8`,
	RunE: runScheduler,
}

var snapshotMinLiquidity float64

func init() {
	rootCmd.AddCommand(schedulerCmd)

	schedulerCmd.Flags().Float64Var(&snapshotMinLiquidity, "snapshot-min-liquidity", 1e8,
		"liquidity threshold for the nightly snapshot")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, cleanup, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	sched := scheduler.New(app.log)

	if err := sched.AddJob(jobs.NewTokenKeepAliveJob(app.tokens, app.log)); err != nil {
		return fmt.Errorf("add keep-alive job: %w", err)
	}

	if app.repo != nil {
		snapshotCfg := screener.Config{
			MinLiquidity: snapshotMinLiquidity,
			Limit:        100,
		}
		if err := sched.AddJob(jobs.NewSnapshotJob(app.screener, app.repo, snapshotCfg, app.log)); err != nil {
			return fmt.Errorf("add snapshot job: %w", err)
		}
	} else {
		app.log.Warn("DATABASE_URL not set, screening snapshot job disabled")
	}

	sched.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	app.log.WithField("signal", sig.String()).Info("Shutdown signal received")
	sched.Stop()

	return nil
}
