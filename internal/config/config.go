package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the file service.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"file-api"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"FILE_API_PORT" envDefault:"8286"`
	LogLevel        string        `env:"FILE_LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"FILE_LOG_FORMAT" envDefault:"console"`
	EnableTracing   bool          `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Database. When the DSN is empty the service runs on the in-memory
	// registry, which is only meant for development and tests.
	DatabaseURL    string        `env:"FILE_DB_DSN"`
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	// Storage
	StoragePath string `env:"FILE_STORAGE_PATH" envDefault:"./file-data"`

	// Retention
	RetentionDays int           `env:"FILE_RETENTION_DAYS" envDefault:"90"`
	SweepInterval time.Duration `env:"FILE_SWEEP_INTERVAL" envDefault:"1h"`
	SweepEnabled  bool          `env:"FILE_SWEEP_ENABLED" envDefault:"true"`

	// Owner directory (external task/subtask record service)
	OwnerDirectoryURL     string        `env:"TASK_DIRECTORY_URL"`
	OwnerDirectoryTimeout time.Duration `env:"TASK_DIRECTORY_TIMEOUT" envDefault:"5s"`

	// Authentication
	AuthEnabled  bool   `env:"AUTH_ENABLED" envDefault:"false"`
	AuthIssuer   string `env:"AUTH_ISSUER"`
	AuthAudience string `env:"AUTH_AUDIENCE"`
	AuthJWKSURL  string `env:"AUTH_JWKS_URL"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.StoragePath = strings.TrimSpace(cfg.StoragePath)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.OwnerDirectoryURL = strings.TrimSpace(cfg.OwnerDirectoryURL)

	if cfg.StoragePath == "" {
		return nil, fmt.Errorf("FILE_STORAGE_PATH must not be empty")
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 90
	}
	if cfg.AuthEnabled {
		if strings.TrimSpace(cfg.AuthIssuer) == "" {
			return nil, fmt.Errorf("AUTH_ISSUER is required when AUTH_ENABLED is true")
		}
		if strings.TrimSpace(cfg.AuthJWKSURL) == "" {
			return nil, fmt.Errorf("AUTH_JWKS_URL is required when AUTH_ENABLED is true")
		}
	}
	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// UsePostgres reports whether a Postgres registry is configured.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}
