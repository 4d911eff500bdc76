package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harshitk-cp/feps/internal/api"
	"github.com/Harshitk-cp/feps/internal/buildconfig"
	"github.com/Harshitk-cp/feps/internal/config"
	"github.com/Harshitk-cp/feps/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}

	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	logger.Info("starting feps",
		zap.String("version", buildconfig.Version()),
		zap.String("commit", buildconfig.Commit()),
	)

	ctx := context.Background()

	backendName := config.StoreBackend()
	dsn := config.DatabaseURL()
	if backendName == store.BackendSQLite {
		dsn = config.SQLitePath()
	}

	backend, err := store.Open(ctx, backendName, dsn)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer func() { _ = backend.Close() }()

	if err := backend.EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to ensure schema", zap.Error(err))
	}
	if err := backend.Ping(ctx); err != nil {
		logger.Fatal("failed to ping store", zap.Error(err))
	}
	logger.Info("connected to store", zap.String("backend", backend.Name()))

	app := api.NewApp(backend, logger)

	// Start background services
	app.Checkpoint.Start()
	app.Expirer.Start()

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:    addr,
		Handler: app.Router,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	// Stop background services
	app.Checkpoint.Stop()
	app.Expirer.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	// Flush anything learned since the last checkpoint tick.
	if flushed, err := app.Models.FlushDirty(shutdownCtx); err != nil {
		logger.Error("final flush failed", zap.Error(err))
	} else if flushed > 0 {
		logger.Info("flushed dirty models", zap.Int("count", flushed))
	}

	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	level, err := zapcore.ParseLevel(config.LogLevel())
	if err != nil {
		level = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
