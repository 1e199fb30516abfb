package commands

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hayasaka/jqproxy/internal/cache"
	"github.com/hayasaka/jqproxy/internal/jquants"
	"github.com/hayasaka/jqproxy/internal/screener"
	"github.com/hayasaka/jqproxy/pkg/config"
	"github.com/hayasaka/jqproxy/pkg/database"
	"github.com/hayasaka/jqproxy/pkg/httputil"
	"github.com/hayasaka/jqproxy/pkg/logger"
	"github.com/hayasaka/jqproxy/pkg/redis"
)

// app holds the wired process dependencies shared by the commands.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	redis    *redis.Client
	db       *pgxpool.Pool // nil when DATABASE_URL is unset
	tokens   *jquants.TokenManager
	client   *jquants.Client
	screener *screener.Screener
	repo     *screener.Repository // nil without a database
}

// buildApp loads config and wires the dependency graph. The returned cleanup
// closes the optional backends.
func buildApp(ctx context.Context) (*app, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	redisClient, err := redis.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}

	httpClient := httputil.New(log, httputil.Options{
		Timeout:          cfg.JQuants.RequestTimeout,
		MaxRetries:       cfg.JQuants.MaxRetries,
		InitialDelay:     cfg.JQuants.RetryBaseDelay,
		MaxDelay:         cfg.JQuants.RetryMaxDelay,
		ConcurrencyLimit: cfg.JQuants.ConcurrencyLimit,
	})

	var sharedCache *redis.Cache
	if redisClient.Enabled() {
		httpClient = httpClient.WithRateLimiter(redis.NewRateLimiter(redisClient, "jqproxy"), redis.JQuantsRateLimit)
		sharedCache = redis.NewCache(redisClient, "jqproxy")
		log.Info("Redis shared cache and rate limiter enabled")
	}

	tokens := jquants.NewTokenManager(cfg.JQuants, httpClient, log)
	client := jquants.NewClient(cfg.JQuants, cfg.Cache, httpClient, tokens, cache.New(sharedCache), log)

	db, err := database.NewPool(ctx, cfg)
	if err != nil {
		redisClient.Close()
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	var repo *screener.Repository
	if db != nil {
		repo = screener.NewRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			redisClient.Close()
			return nil, nil, err
		}
		log.Info("Connected to database, snapshot persistence enabled")
	}

	cleanup := func() {
		if db != nil {
			db.Close()
		}
		redisClient.Close()
	}

	return &app{
		cfg:      cfg,
		log:      log,
		redis:    redisClient,
		db:       db,
		tokens:   tokens,
		client:   client,
		screener: screener.New(client, log),
		repo:     repo,
	}, cleanup, nil
}
