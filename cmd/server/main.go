package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/rx-safety-engine/internal/api"
	"github.com/rx-safety-engine/internal/config"
	"github.com/rx-safety-engine/internal/scheduler"
	"github.com/rx-safety-engine/internal/service"
	"github.com/rx-safety-engine/internal/setup"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	logger, err := config.NewLogger(configManager.GetConfig().Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	if err := run(logger, configManager); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
	logger.Info("Server stopped")
}

func run(logger *logrus.Logger, configManager *config.Manager) error {
	cfg := configManager.GetConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kb, err := setup.OpenKnowledgeBase(ctx, logger, setup.StoreOptionsFromConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to open knowledge store: %w", err)
	}
	defer kb.Close()

	probe := scheduler.NewHealthProbe(logger, cfg.Scheduler.HealthProbeInterval)
	probe.Register(kb.Driver, kb)
	if err := probe.Start(); err != nil {
		return fmt.Errorf("failed to start health probe: %w", err)
	}
	defer probe.Stop()

	server := api.NewServer(logger, api.Options{
		Server:  cfg.Server,
		Auth:    cfg.Auth,
		Engines: service.NewEngines(logger, kb.Store),
		Store:   kb,
		Driver:  kb.Driver,
		Version: kb.Version,
		Probe:   probe,
		Debug:   configManager.IsDevelopment() && cfg.Logging.Level == "debug",
	})

	logger.WithFields(logrus.Fields{
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"environment": cfg.Environment,
		"store":       kb.Driver,
	}).Info("Starting rx-safety-engine")

	return server.Start(ctx)
}
