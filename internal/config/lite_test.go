package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Empty(t, cfg.DatasetPath)
	assert.Equal(t, "memory", cfg.Store)
	assert.False(t, cfg.WatchDataset)
	assert.Equal(t, "stdio", cfg.Transport)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RXSAFETY_DATA_DIR", "/tmp/test-rx")
	t.Setenv("RXSAFETY_DATASET", "/tmp/test-rx/drugs.json")
	t.Setenv("RXSAFETY_STORE", "SQLite")
	t.Setenv("RXSAFETY_WATCH_DATASET", "true")
	t.Setenv("RXSAFETY_TRANSPORT", "http")
	t.Setenv("RXSAFETY_HTTP_PORT", "9090")
	t.Setenv("RXSAFETY_LOG_LEVEL", "debug")
	t.Setenv("RXSAFETY_LOG_FORMAT", "text")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-rx", cfg.DataDir)
	assert.Equal(t, "/tmp/test-rx/drugs.json", cfg.DatasetPath)
	assert.Equal(t, "sqlite", cfg.Store)
	assert.True(t, cfg.WatchDataset)
	assert.Equal(t, "http", cfg.Transport)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadLiteConfig_IgnoresInvalidValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RXSAFETY_STORE", "redis")
	t.Setenv("RXSAFETY_WATCH_DATASET", "sometimes")
	t.Setenv("RXSAFETY_HTTP_PORT", "-1")

	cfg := LoadLiteConfig()

	assert.Equal(t, "memory", cfg.Store)
	assert.False(t, cfg.WatchDataset)
	assert.Equal(t, 8080, cfg.HTTPPort)
}

func TestLiteConfig_SQLitePath(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.rx-safety"}

	assert.Equal(t, "/home/user/.rx-safety/knowledge.db", cfg.SQLitePath())
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: filepath.Join(t.TempDir(), "nested", "rx")}

	require.NoError(t, cfg.EnsureDataDir())
	assert.DirExists(t, cfg.DataDir)
}
