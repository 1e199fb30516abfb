package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the proxy.
// SSOT: every environment variable is read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Caller-facing auth
	ProxyBearerToken string

	// Upstream
	JQuants JQuantsConfig

	// Response cache TTLs (per endpoint class, not per record)
	Cache CacheConfig

	// Optional backends
	Redis    RedisConfig
	Database DatabaseConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// JQuantsConfig holds J-Quants API credentials and client tuning.
type JQuantsConfig struct {
	BaseURL string

	// Long-lived credential. Assumed valid until rejected when no expiry is known.
	RefreshToken string

	// Account bootstrap credentials, used to obtain a fresh refresh token
	// when none is configured or the configured one is rejected.
	MailAddress string
	Password    string

	// ID tokens are documented as valid for 24h; kept configurable because
	// the provider has changed this between API versions.
	IDTokenTTL        time.Duration
	TokenSafetyMargin time.Duration

	// Retry/backoff for 429 and 5xx responses.
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// Process-wide bound on concurrent in-flight upstream requests.
	ConcurrencyLimit int

	// Pagination safety ceiling and inter-page smoothing.
	MaxPages       int
	PageRateLimit  float64 // pages per second while draining pagination_key
	RequestTimeout time.Duration
}

// CacheConfig holds TTLs for the response cache, keyed by endpoint class.
type CacheConfig struct {
	ReferenceTTL  time.Duration // listed info, trading calendar
	PricesTTL     time.Duration // daily quotes
	StatementsTTL time.Duration // financial statements, margin interest
}

// RedisConfig holds the optional shared cache / rate limiter backend.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds the optional PostgreSQL backend for screening snapshots.
type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Load reads configuration from environment variables.
// SSOT: this is the only function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		ProxyBearerToken: getEnv("PROXY_BEARER_TOKEN", ""),

		JQuants: JQuantsConfig{
			BaseURL:           getEnv("JQUANTS_BASE_URL", "https://api.jquants.com/v1"),
			RefreshToken:      getEnv("JQUANTS_REFRESH_TOKEN", ""),
			MailAddress:       getEnv("JQUANTS_MAIL_ADDRESS", ""),
			Password:          getEnv("JQUANTS_PASSWORD", ""),
			IDTokenTTL:        getEnvAsDuration("JQUANTS_ID_TOKEN_TTL", "24h"),
			TokenSafetyMargin: getEnvAsDuration("JQUANTS_TOKEN_SAFETY_MARGIN", "5m"),
			MaxRetries:        getEnvAsInt("JQUANTS_MAX_RETRIES", 3),
			RetryBaseDelay:    getEnvAsDuration("JQUANTS_RETRY_BASE_DELAY", "500ms"),
			RetryMaxDelay:     getEnvAsDuration("JQUANTS_RETRY_MAX_DELAY", "10s"),
			ConcurrencyLimit:  getEnvAsInt("JQUANTS_CONCURRENCY_LIMIT", 5),
			MaxPages:          getEnvAsInt("JQUANTS_MAX_PAGES", 10),
			PageRateLimit:     getEnvAsFloat("JQUANTS_PAGE_RATE_LIMIT", 5.0),
			RequestTimeout:    getEnvAsDuration("JQUANTS_REQUEST_TIMEOUT", "30s"),
		},

		Cache: CacheConfig{
			ReferenceTTL:  getEnvAsDuration("CACHE_REFERENCE_TTL", "24h"),
			PricesTTL:     getEnvAsDuration("CACHE_PRICES_TTL", "10m"),
			StatementsTTL: getEnvAsDuration("CACHE_STATEMENTS_TTL", "6h"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.ProxyBearerToken == "" {
		return fmt.Errorf("PROXY_BEARER_TOKEN is required")
	}

	// At least one credential path must exist: a refresh token, or the
	// mail/password pair for the bootstrap flow.
	if c.JQuants.RefreshToken == "" && (c.JQuants.MailAddress == "" || c.JQuants.Password == "") {
		return fmt.Errorf("either JQUANTS_REFRESH_TOKEN or JQUANTS_MAIL_ADDRESS + JQUANTS_PASSWORD is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.JQuants.ConcurrencyLimit < 1 {
		return fmt.Errorf("JQUANTS_CONCURRENCY_LIMIT must be at least 1")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
