// Command mcp-server-lite serves the safety engines as MCP tools without a
// database server: the knowledge store is the in-memory dataset or a local
// SQLite file.
package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/rx-safety-engine/internal/config"
	"github.com/rx-safety-engine/internal/mcp"
	"github.com/rx-safety-engine/internal/service"
	"github.com/rx-safety-engine/internal/setup"
)

func main() {
	cfg := config.LoadLiteConfig()

	logger, err := config.NewLogger(cfg.Logging())
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	if err := run(logger, cfg); err != nil {
		logger.WithError(err).Fatal("MCP server failed")
	}
	logger.Info("MCP server stopped")
}

func run(logger *logrus.Logger, cfg *config.LiteConfig) error {
	if cfg.Store == setup.DriverSQLite {
		if err := cfg.EnsureDataDir(); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kb, err := setup.OpenKnowledgeBase(ctx, logger, setup.StoreOptionsFromLite(cfg))
	if err != nil {
		return err
	}
	defer kb.Close()

	server := mcp.NewServer(logger, service.NewEngines(logger, kb.Store))

	logger.WithFields(logrus.Fields{
		"transport": cfg.Transport,
		"store":     kb.Driver,
		"version":   kb.Version,
	}).Info("Starting rx-safety MCP server (lite)")

	return server.Run(ctx, cfg.Transport, cfg.HTTPPort)
}
