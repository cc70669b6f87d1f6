// Package config loads application configuration: the viper-backed Manager
// for the full server and the env-only LiteConfig for the standalone MCP
// server and CLI.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LiteConfig configures standalone operation. It needs no database server;
// the knowledge store is either the in-memory dataset or a local SQLite file.
type LiteConfig struct {
	DataDir      string // Base directory for local files
	DatasetPath  string // Optional JSON dataset; empty uses the embedded reference data
	Store        string // memory or sqlite
	WatchDataset bool   // Reload the dataset when DatasetPath changes (memory store only)

	Transport string // stdio or http
	HTTPPort  int

	LogLevel  string
	LogFormat string // json or text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()

	return &LiteConfig{
		DataDir:   filepath.Join(homeDir, ".rx-safety"),
		Store:     "memory",
		Transport: "stdio",
		HTTPPort:  8080,
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// LoadLiteConfig reads RXSAFETY_* variables (after .env) over the defaults.
func LoadLiteConfig() *LiteConfig {
	_ = loadDotEnv()
	cfg := DefaultLiteConfig()

	if v := os.Getenv(EnvPrefix + "_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvPrefix + "_DATASET"); v != "" {
		cfg.DatasetPath = v
	}
	if v := strings.ToLower(os.Getenv(EnvPrefix + "_STORE")); v == "memory" || v == "sqlite" {
		cfg.Store = v
	}
	if v := os.Getenv(EnvPrefix + "_WATCH_DATASET"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.WatchDataset = b
		}
	}

	if v := os.Getenv(EnvPrefix + "_TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv(EnvPrefix + "_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	if v := os.Getenv(EnvPrefix + "_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvPrefix + "_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// SQLitePath returns the path of the SQLite knowledge database.
func (c *LiteConfig) SQLitePath() string {
	return filepath.Join(c.DataDir, "knowledge.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}
