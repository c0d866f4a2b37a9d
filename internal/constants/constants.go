// Package constants defines shared configuration defaults and limits for the
// ychat20 messaging backend.
package constants

import "time"

// Chat history pagination defaults.
const (
	// DefaultHistoryLimit is the page size used when no limit is supplied.
	DefaultHistoryLimit = 50
	// DefaultHistoryOffset is the offset used when none is supplied.
	DefaultHistoryOffset = 0
)

// Message limits.
const (
	// MaxContentLength is the maximum chat message content length in characters.
	MaxContentLength = 5000
	// DefaultMaxMessageSize is the maximum WebSocket frame size in bytes (1MB).
	DefaultMaxMessageSize = 1048576
	// SendBufferSize is the per-connection outbound channel capacity.
	SendBufferSize = 256
)

// HTTP server timeouts.
const (
	HTTPReadTimeout  = 15 * time.Second
	HTTPWriteTimeout = 15 * time.Second
	HTTPIdleTimeout  = 60 * time.Second
)

// Rate limiting defaults for the history API.
const (
	DefaultHistoryRateLimit  = 100
	DefaultHistoryRateWindow = 15 * time.Minute
)

// DefaultShutdownTimeout bounds graceful shutdown of live connections.
const DefaultShutdownTimeout = 10 * time.Second

// MinJWTSecretLength is the minimum acceptable JWT secret length.
const MinJWTSecretLength = 32

// WeakSecrets lists substrings that indicate a weak or placeholder JWT secret.
var WeakSecrets = []string{
	"secret",
	"password",
	"changeme",
	"change-this",
	"your-secret-key",
	"example",
	"test123",
}
