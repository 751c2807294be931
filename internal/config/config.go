package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Stats API
	Season            string        `envconfig:"SEASON" default:"2025-26"`
	StatsBaseURL      string        `envconfig:"NBA_STATS_BASE_URL" default:"https://stats.nba.com/stats"`
	StatsTimeout      time.Duration `envconfig:"NBA_STATS_TIMEOUT" default:"30s"`
	MaxRetries        int           `envconfig:"NBA_STATS_MAX_RETRIES" default:"5"`
	RetryInitialDelay time.Duration `envconfig:"NBA_STATS_RETRY_INITIAL_DELAY" default:"1s"`

	// Inter-request throttling. The remote service silently blocks clients
	// that skip these delays, which corrupts partial batches mid-run.
	SummaryDelay  time.Duration `envconfig:"SUMMARY_DELAY" default:"2s"`
	AdvancedDelay time.Duration `envconfig:"ADVANCED_DELAY" default:"2s"`

	// Classification margins (points entering Q4)
	BlowoutMargin int `envconfig:"BLOWOUT_MARGIN_Q4" default:"15"`
	CloseMargin   int `envconfig:"CLOSE_MARGIN_Q4" default:"10"`

	// Sample size thresholds (possessions)
	BaselineMinPoss  float64 `envconfig:"BASELINE_MIN_POSS" default:"100"`
	TreatmentMinPoss float64 `envconfig:"TREATMENT_MIN_POSS" default:"20"`

	// Foul filtering for the close-game baseline
	FoulFilter      bool    `envconfig:"ENABLE_FOUL_FILTER" default:"true"`
	CloseFTARateMax float64 `envconfig:"CLOSE_FTA_RATE_MAX" default:"0.35"`

	// Pipeline
	BatchSize         int    `envconfig:"BATCH_SIZE" default:"10"`
	MaxGames          int    `envconfig:"MAX_GAMES" default:"0"`
	DataDir           string `envconfig:"DATA_DIR" default:"."`
	AdvancedBoxScores bool   `envconfig:"ADVANCED_BOX_SCORES" default:"true"`

	// Database (optional; priors are published when configured)
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:""`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"nba_priors"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"nba_priors"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" default:""`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis (optional; line-score cache)
	RedisHost         string        `envconfig:"REDIS_HOST" default:""`
	RedisPort         int           `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword     string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB           int           `envconfig:"REDIS_DB" default:"0"`
	LineScoreCacheTTL time.Duration `envconfig:"LINESCORE_CACHE_TTL" default:"168h"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`

	// Worker mode
	RemineCron string `envconfig:"REMINE_CRON" default:"0 6 * * *"`
}

// Load loads configuration from environment variables.
// It first attempts to load from .env file if present.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Season == "" {
		return fmt.Errorf("SEASON is required")
	}

	if c.BlowoutMargin <= c.CloseMargin {
		return fmt.Errorf("BLOWOUT_MARGIN_Q4 (%d) must exceed CLOSE_MARGIN_Q4 (%d)", c.BlowoutMargin, c.CloseMargin)
	}

	if c.BatchSize < 1 {
		return fmt.Errorf("BATCH_SIZE must be at least 1")
	}

	if c.DatabaseHost != "" && c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required when DATABASE_HOST is set")
	}

	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DatabaseUser,
		c.DatabasePassword,
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseName,
		c.DatabaseSSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// RawPath returns the per-season raw data file path
func (c *Config) RawPath(season string) string {
	return filepath.Join(c.DataDir, fmt.Sprintf("raw_q4_data_%s.csv", season))
}

// ManifestPath returns the per-season manifest file path
func (c *Config) ManifestPath(season string) string {
	return filepath.Join(c.DataDir, fmt.Sprintf("processed_games_%s.csv", season))
}

// ArtifactPath returns the per-season priors artifact path
func (c *Config) ArtifactPath(season string) string {
	return filepath.Join(c.DataDir, fmt.Sprintf("blowout_priors_%s.json", season))
}

// LockPath returns the per-season advisory lock file path
func (c *Config) LockPath(season string) string {
	return filepath.Join(c.DataDir, fmt.Sprintf(".miner_%s.lock", season))
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// MustLoad loads configuration or exits on error.
// Use this in main() where we want to fail fast.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
