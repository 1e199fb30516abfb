package jobs

import (
	"context"
	"fmt"

	"github.com/hayasaka/jqproxy/internal/screener"
	"github.com/hayasaka/jqproxy/pkg/logger"
)

// SnapshotJob runs the screening pipeline nightly and persists the result.
// SSOT: snapshot scheduling happens in this job only.
type SnapshotJob struct {
	screener *screener.Screener
	repo     *screener.Repository
	config   screener.Config
	logger   *logger.Logger
}

// NewSnapshotJob creates a new screening snapshot job.
func NewSnapshotJob(s *screener.Screener, repo *screener.Repository, cfg screener.Config, log *logger.Logger) *SnapshotJob {
	return &SnapshotJob{
		screener: s,
		repo:     repo,
		config:   cfg,
		logger:   log,
	}
}

// Name returns the job name.
func (j *SnapshotJob) Name() string {
	return "screening_snapshot"
}

// Schedule returns the cron schedule (18:30 daily, after the market data
// for the day has settled upstream).
func (j *SnapshotJob) Schedule() string {
	return "0 30 18 * * *"
}

// Run executes one screening run and stores it.
func (j *SnapshotJob) Run(ctx context.Context) error {
	result, err := j.screener.Run(ctx, j.config)
	if err != nil {
		return fmt.Errorf("screening run: %w", err)
	}

	runID, err := j.repo.SaveRun(ctx, j.config, result)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":  runID,
		"rows":    len(result.Rows),
		"scanned": result.Scanned,
	}).Info("Screening snapshot stored")

	return nil
}
