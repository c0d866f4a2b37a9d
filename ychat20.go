// Package ychat20 provides the service registration for the two-party
// messaging backend. It wires the WebSocket session layer, the message
// router, and the chat history API onto a gin engine.
package ychat20

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/samarthnaikk/ychat20/internal/api"
	"github.com/samarthnaikk/ychat20/internal/auth"
	"github.com/samarthnaikk/ychat20/internal/config"
	"github.com/samarthnaikk/ychat20/internal/history"
	"github.com/samarthnaikk/ychat20/internal/identity"
	"github.com/samarthnaikk/ychat20/internal/ratelimit"
	"github.com/samarthnaikk/ychat20/internal/registry"
	"github.com/samarthnaikk/ychat20/internal/router"
	"github.com/samarthnaikk/ychat20/internal/store"
	"github.com/samarthnaikk/ychat20/internal/websocket"
)

var (
	// Global references for graceful shutdown
	globalWSHandler   *websocket.Handler
	globalAPILimiter  *ratelimit.RequestLimiter
	globalLogger      *zap.SugaredLogger
	shutdownMu        sync.Mutex
)

// Register wires all chat endpoints onto the gin engine.
//
// Routes:
//   - GET  /ws                              WebSocket endpoint (in-band auth)
//   - GET  /api/messages/history/:userID    paginated chat history
//   - POST /api/messages/read               read receipts
//   - GET  /healthz, /readyz                health checks
//   - GET  /metrics                         Prometheus metrics
func Register(r *gin.Engine, cfg *config.Config, logger *zap.SugaredLogger, st store.Store) error {
	logger.Infow("Initializing chat service")

	validator := auth.NewJWTValidator(cfg.JWTSecret)
	ident := identity.New(validator, st)
	reg := registry.New()
	messageRouter := router.New(st, reg, logger)

	wsHandler := websocket.NewHandler(ident, messageRouter, reg, logger, cfg.MaxMessageSize)

	// SECURITY: When no origins are configured, ALL origins are accepted.
	// Acceptable only in development or behind a proxy that validates origins.
	if len(cfg.AllowedOrigins) > 0 {
		wsHandler.SetAllowedOrigins(cfg.AllowedOrigins)
	} else {
		logger.Warnw("No allowed origins configured, allowing all origins (development mode)")
	}

	historyService := history.New(st, logger)
	apiLimiter := ratelimit.NewRequestLimiter(cfg.HistoryRateWindow, cfg.HistoryRateLimit)
	apiLimiter.StartCleanup()

	// Stop any previously-registered instances to prevent goroutine leaks
	// when Register is called multiple times (tests, hot-reload).
	shutdownMu.Lock()
	if globalAPILimiter != nil {
		globalAPILimiter.StopCleanup()
	}
	if globalWSHandler != nil {
		_ = globalWSHandler.ShutdownWithContext(context.Background())
	}
	globalWSHandler = wsHandler
	globalAPILimiter = apiLimiter
	globalLogger = logger
	shutdownMu.Unlock()

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSAllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
		logger.Infow("CORS middleware configured",
			"allowed_origins", cfg.CORSAllowedOrigins)
	}

	r.Use(securityHeadersMiddleware())

	r.GET("/ws", func(c *gin.Context) {
		wsHandler.HandleWebSocket(c.Writer, c.Request)
	})

	messages := r.Group("/api/messages")
	messages.Use(api.AuthMiddleware(ident, logger))
	messages.Use(api.RateLimitMiddleware(apiLimiter, logger))
	{
		messages.GET("/history/:userID", api.HandleChatHistory(historyService, logger))
		messages.POST("/read", api.HandleMarkRead(historyService, logger))
	}

	r.GET("/healthz", handleHealthCheck)
	r.GET("/readyz", handleReadyCheck(st))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Infow("Chat service registered",
		"websocket_endpoint", "/ws",
		"history_endpoint", "/api/messages/history/:userID")

	return nil
}

// Shutdown gracefully closes all live WebSocket connections and stops
// background workers.
func Shutdown(ctx context.Context) error {
	shutdownMu.Lock()
	wsHandler := globalWSHandler
	apiLimiter := globalAPILimiter
	logger := globalLogger
	globalWSHandler = nil
	globalAPILimiter = nil
	shutdownMu.Unlock()

	if apiLimiter != nil {
		apiLimiter.StopCleanup()
	}
	if wsHandler != nil {
		if err := wsHandler.ShutdownWithContext(ctx); err != nil {
			if logger != nil {
				logger.Warnw("WebSocket shutdown did not complete cleanly", "error", err)
			}
			return err
		}
	}
	return nil
}

// securityHeadersMiddleware adds standard HTTP security headers to all responses.
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// handleHealthCheck reports process liveness.
func handleHealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleReadyCheck reports readiness, including store connectivity.
func handleReadyCheck(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"reason": "store unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
