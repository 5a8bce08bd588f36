package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/drug-repurposing-engine/internal/api"
	"github.com/drug-repurposing-engine/internal/config"
	"github.com/drug-repurposing-engine/internal/setup"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := setup.NewLogger(cfg.Logging)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := api.NewProgressHub(logger)

	engine, err := setup.BuildEngine(ctx, cfg, logger, hub)
	if err != nil {
		logger.WithError(err).Fatal("Failed to assemble engine")
	}
	defer engine.Close()

	server := api.NewServer(cfg.Server, configManager.IsDevelopment(), api.Deps{
		Analysis: engine.Analysis,
		Library:  engine.Library,
		History:  engine.History,
		Health:   engine.Client,
		Hub:      hub,
	}, logger)

	logger.WithField("port", cfg.Server.Port).Info("Starting drug repurposing engine")
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}
