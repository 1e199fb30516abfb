package jobs

import (
	"context"
	"fmt"

	"github.com/hayasaka/jqproxy/internal/jquants"
	"github.com/hayasaka/jqproxy/pkg/logger"
)

// TokenKeepAliveJob pre-warms the upstream ID token so the first request
// after a quiet period never pays the exchange latency.
// SSOT: token keep-alive scheduling happens in this job only.
type TokenKeepAliveJob struct {
	tokens *jquants.TokenManager
	logger *logger.Logger
}

// NewTokenKeepAliveJob creates a new token keep-alive job.
func NewTokenKeepAliveJob(tokens *jquants.TokenManager, log *logger.Logger) *TokenKeepAliveJob {
	return &TokenKeepAliveJob{tokens: tokens, logger: log}
}

// Name returns the job name.
func (j *TokenKeepAliveJob) Name() string {
	return "token_keepalive"
}

// Schedule returns the cron schedule (hourly).
func (j *TokenKeepAliveJob) Schedule() string {
	return "0 0 * * * *"
}

// Run ensures a valid ID token is cached.
func (j *TokenKeepAliveJob) Run(ctx context.Context) error {
	if _, err := j.tokens.EnsureIDToken(ctx); err != nil {
		return fmt.Errorf("ensure id token: %w", err)
	}

	j.logger.WithField("remaining", j.tokens.RemainingValidity().String()).
		Info("ID token warm")
	return nil
}
