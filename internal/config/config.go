// Package config loads service configuration from the environment.
// A .env file is loaded first when present, then environment variables
// override it.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/samarthnaikk/ychat20/internal/constants"
	"github.com/samarthnaikk/ychat20/internal/util"
)

// Config holds all service settings.
type Config struct {
	// Addr is the listen address for the HTTP server.
	Addr string `envconfig:"ADDR" default:":3000"`

	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// JWTSecret signs and verifies credential tokens. Must be strong; the
	// service refuses to start with a short or placeholder secret.
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// AllowedOrigins restricts WebSocket upgrades to these origins.
	// Empty means all origins are accepted (development mode).
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`

	// CORSAllowedOrigins enables CORS for the HTTP API when set.
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`

	// MaxMessageSize is the maximum WebSocket frame size in bytes.
	MaxMessageSize int64 `envconfig:"MAX_MESSAGE_SIZE" default:"1048576"`

	// HistoryRateLimit is the number of history API requests allowed per
	// user per HistoryRateWindow.
	HistoryRateLimit  int           `envconfig:"HISTORY_RATE_LIMIT" default:"100"`
	HistoryRateWindow time.Duration `envconfig:"HISTORY_RATE_WINDOW" default:"15m"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// LogLevel selects the zap log level (debug, info, warn, error).
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads configuration from .env (if present) and the environment, then
// validates it.
func Load() (*Config, error) {
	// Missing .env is fine; the environment alone may be complete.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks configuration invariants that must hold before serving
// traffic.
func (c *Config) Validate() error {
	if err := validateJWTSecret(c.JWTSecret); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("MAX_MESSAGE_SIZE must be positive, got %d", c.MaxMessageSize)
	}
	if c.HistoryRateLimit <= 0 {
		return fmt.Errorf("HISTORY_RATE_LIMIT must be positive, got %d", c.HistoryRateLimit)
	}
	if c.HistoryRateWindow <= 0 {
		return fmt.Errorf("HISTORY_RATE_WINDOW must be positive, got %s", c.HistoryRateWindow)
	}
	return nil
}

// validateJWTSecret rejects short or obviously weak signing secrets.
func validateJWTSecret(secret string) error {
	if len(secret) < constants.MinJWTSecretLength {
		return fmt.Errorf("JWT secret must be at least %d characters, got %d",
			constants.MinJWTSecretLength, len(secret))
	}
	if weak, pattern := util.ContainsWeakPattern(secret, constants.WeakSecrets); weak {
		return fmt.Errorf("JWT secret contains weak pattern %q", pattern)
	}
	return nil
}
