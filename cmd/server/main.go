package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	ychat "github.com/samarthnaikk/ychat20"
	"github.com/samarthnaikk/ychat20/internal/config"
	"github.com/samarthnaikk/ychat20/internal/constants"
	"github.com/samarthnaikk/ychat20/internal/store"
)

// initializeLogger builds the production logger at the configured level.
func initializeLogger(level string) (*zap.SugaredLogger, error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// NewHTTPServer creates an HTTP server with production-safe timeout defaults.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  constants.HTTPReadTimeout,
		WriteTimeout: constants.HTTPWriteTimeout,
		IdleTimeout:  constants.HTTPIdleTimeout,
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := initializeLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	st, err := store.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()

	engine := gin.New()
	engine.Use(gin.Recovery())

	if err := ychat.Register(engine, cfg, logger, st); err != nil {
		return err
	}

	server := NewHTTPServer(cfg.Addr, engine)

	errChan := make(chan error, 1)
	go func() {
		logger.Infow("Server starting", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		logger.Infow("Shutting down gracefully", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := ychat.Shutdown(ctx); err != nil {
		logger.Warnw("Chat service shutdown incomplete", "error", err)
	}
	if err := server.Shutdown(ctx); err != nil {
		return err
	}

	logger.Infow("Server stopped")
	return nil
}
