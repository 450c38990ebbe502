package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Result feed (Jolpica / Ergast compatible API)
	FeedBaseURL string        `envconfig:"FEED_BASE_URL" default:"https://api.jolpi.ca/ergast/f1"`
	FeedSeason  string        `envconfig:"FEED_SEASON" default:"current"`
	FeedTimeout time.Duration `envconfig:"FEED_TIMEOUT" default:"30s"`

	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"f1league"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"f1league_user"`
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

	// HTTP API
	ServerPort int `envconfig:"SERVER_PORT" default:"8080"`

	// Race calendar (JSON event list consulted by the deadline gate)
	CalendarPath string `envconfig:"CALENDAR_PATH" default:"calendar.json"`

	// Scheduler
	EnableScheduler     bool          `envconfig:"ENABLE_SCHEDULER" default:"true"`
	SettleCheckInterval time.Duration `envconfig:"SETTLE_CHECK_INTERVAL" default:"10m"`
	SettleWindow        time.Duration `envconfig:"SETTLE_WINDOW" default:"48h"`
	NextRaceRefreshCron string        `envconfig:"NEXT_RACE_REFRESH_CRON" default:"0 3 * * *"`

	// Caching TTL (in seconds)
	CacheTTLNextRace int `envconfig:"CACHE_TTL_NEXT_RACE" default:"600"` // 10 minutes

	// Outbound notifications
	NotifyEnabled    bool   `envconfig:"NOTIFY_ENABLED" default:"false"`
	NotifyWebhookURL string `envconfig:"NOTIFY_WEBHOOK_URL" default:""`

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

	// Validate
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

	if c.NotifyEnabled && c.NotifyWebhookURL == "" {
		return fmt.Errorf("NOTIFY_WEBHOOK_URL is required when notifications are enabled")
	}

	if c.SettleWindow <= 0 {
		return fmt.Errorf("SETTLE_WINDOW must be positive")
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

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
