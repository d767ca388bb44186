package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"DataLink.piwebapi/internal/app"
	"DataLink.piwebapi/internal/config"
	"DataLink.piwebapi/internal/logging"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(zap.NewNop())
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize client, optional sinks and service
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Error initializing application", zap.Error(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("Error closing clients", zap.Error(err))
		}
	}()

	if err := a.Serve(ctx); err != nil {
		logger.Error("Server stopped", zap.Error(err))
	}
}
