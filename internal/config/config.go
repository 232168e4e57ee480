package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
)

// Config holds all application configuration
type Config struct {
	// NHL API
	NHLStatsAPIURL string `envconfig:"NHL_STATS_API_URL" default:"https://api.nhle.com"`
	NHLWebAPIURL   string `envconfig:"NHL_WEB_API_URL" default:"https://api-web.nhle.com"`

	// Fetch retry tuning
	FetchMaxRetries    int           `envconfig:"FETCH_MAX_RETRIES" default:"5"`
	FetchBackoffFactor time.Duration `envconfig:"FETCH_BACKOFF_FACTOR" default:"1s"`
	FetchTimeout       time.Duration `envconfig:"FETCH_TIMEOUT" default:"10s"`

	// Seasons with an id below this are ignored
	SeasonThreshold int `envconfig:"SEASON_THRESHOLD" default:"20052006"`

	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"nhl_stats"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"nhl_user"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Optional rotating log file
	LogFile           string `envconfig:"LOG_FILE" default:""`
	LogFileMaxSizeMB  int    `envconfig:"LOG_FILE_MAX_SIZE_MB" default:"100"`
	LogFileMaxBackups int    `envconfig:"LOG_FILE_MAX_BACKUPS" default:"5"`
	LogFileMaxAgeDays int    `envconfig:"LOG_FILE_MAX_AGE_DAYS" default:"28"`

	// Sync
	SyncWorkers          int  `envconfig:"SYNC_WORKERS" default:"1"`
	SyncExtendedStages   bool `envconfig:"SYNC_EXTENDED_STAGES" default:"false"`
	SyncGamesSeasonLimit int  `envconfig:"SYNC_GAMES_SEASON_LIMIT" default:"1"`

	// Scheduler
	EnableScheduler    bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	InitialSyncEnabled bool   `envconfig:"INITIAL_SYNC_ENABLED" default:"true"`
	NightlyRefreshCron string `envconfig:"NIGHTLY_REFRESH_CRON" default:"0 2 * * *"`

	// API Rate Limiting (requests per second, 0 disables)
	APIRateLimit  int `envconfig:"API_RATE_LIMIT" default:"5"`
	APIBurstLimit int `envconfig:"API_BURST_LIMIT" default:"5"`

	// Response cache
	CacheEnabled      bool          `envconfig:"CACHE_ENABLED" default:"true"`
	CacheTTLResponses time.Duration `envconfig:"CACHE_TTL_RESPONSES" default:"6h"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
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
	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}

	if c.FetchMaxRetries < 1 {
		return fmt.Errorf("FETCH_MAX_RETRIES must be at least 1, got %d", c.FetchMaxRetries)
	}
	if c.FetchBackoffFactor < 0 {
		return fmt.Errorf("FETCH_BACKOFF_FACTOR must not be negative")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}

	if err := validateSeasonID(c.SeasonThreshold); err != nil {
		return fmt.Errorf("SEASON_THRESHOLD: %w", err)
	}

	if c.SyncWorkers < 0 {
		return fmt.Errorf("SYNC_WORKERS must not be negative")
	}
	if c.APIRateLimit < 0 || c.APIBurstLimit < 0 {
		return fmt.Errorf("API_RATE_LIMIT and API_BURST_LIMIT must not be negative")
	}

	if c.EnableScheduler {
		if _, err := cron.ParseStandard(c.NightlyRefreshCron); err != nil {
			return fmt.Errorf("NIGHTLY_REFRESH_CRON is invalid: %w", err)
		}
	}

	return nil
}

// validateSeasonID checks that id is two consecutive 4-digit years, e.g. 20052006
func validateSeasonID(id int) error {
	s := strconv.Itoa(id)
	if len(s) != 8 {
		return fmt.Errorf("season id %d must have 8 digits", id)
	}
	start, _ := strconv.Atoi(s[:4])
	end, _ := strconv.Atoi(s[4:])
	if end != start+1 {
		return fmt.Errorf("season id %d must span consecutive years", id)
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseUser,
		c.DatabasePassword,
		c.DatabaseName,
		c.DatabaseSSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or exits on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
