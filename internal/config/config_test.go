package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, yaml string) *Manager {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	if yaml != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
	}

	m, err := NewManager(WithConfigPaths(dir))
	require.NoError(t, err)
	return m
}

func TestNewManager_Defaults(t *testing.T) {
	m := newTestManager(t, "")
	cfg := m.GetConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "memory", m.GetStoreConfig().Driver)
	assert.True(t, cfg.Store.Breaker.Enabled)
	assert.Equal(t, uint32(3), cfg.Store.Breaker.MinRequests)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.HealthProbeInterval)
	assert.Equal(t, "rx_safety", m.GetDatabaseConfig().Database)
	assert.Empty(t, cfg.Auth.JWTSecret)
	assert.True(t, m.IsDevelopment())
	assert.False(t, m.IsProduction())
	assert.NoError(t, m.Validate())
}

func TestNewManager_ConfigFileAndEnv(t *testing.T) {
	t.Setenv("RXSAFETY_SERVER_PORT", "9191")
	t.Setenv("RXSAFETY_DATABASE_PASSWORD", "s3cret")

	m := newTestManager(t, `
environment: production
server:
  port: 8181
store:
  driver: postgres
database:
  host: db
  database: drugs
logging:
  level: debug
  format: text
`)

	assert.Equal(t, 9191, m.GetServerConfig().Port, "environment overrides the file")
	assert.Equal(t, "postgres", m.GetStoreConfig().Driver)
	assert.True(t, m.IsProduction())
	assert.NoError(t, m.Validate())
	assert.Equal(t, "postgres://postgres:s3cret@db:5432/drugs?sslmode=disable", m.GetDatabaseURL())
	assert.Equal(t, "host=db port=5432 user=postgres password=s3cret dbname=drugs sslmode=disable",
		m.GetDatabaseConnectionString())
}

func TestNewManager_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RXSAFETY_STORE_DRIVER=sqlite\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("RXSAFETY_STORE_DRIVER") })

	m, err := NewManager(WithConfigPaths(dir))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", m.GetStoreConfig().Driver)
}

func TestManager_Validate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		yaml    string
		wantErr string
	}{
		{"bad port", map[string]string{"RXSAFETY_SERVER_PORT": "70000"}, "", "invalid server port"},
		{"bad driver", map[string]string{"RXSAFETY_STORE_DRIVER": "redis"}, "", "invalid store driver"},
		{"postgres without host", nil, "store:\n  driver: postgres\ndatabase:\n  host: \"\"\n", "database host is required"},
		{"sqlite without path", nil, "store:\n  driver: sqlite\n  sqlite_path: \"\"\n", "sqlite path is required"},
		{"bad ratio", map[string]string{"RXSAFETY_STORE_BREAKER_FAILURE_RATIO": "1.5"}, "", "failure ratio"},
		{"bad log level", map[string]string{"RXSAFETY_LOGGING_LEVEL": "loud"}, "", "invalid log level"},
		{"bad log format", map[string]string{"RXSAFETY_LOGGING_FORMAT": "xml"}, "", "invalid log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			m := newTestManager(t, tt.yaml)

			err := m.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestManager_Reload(t *testing.T) {
	m := newTestManager(t, "")
	assert.Equal(t, 8080, m.GetServerConfig().Port)

	t.Setenv("RXSAFETY_SERVER_PORT", "8282")
	require.NoError(t, m.Reload())
	assert.Equal(t, 8282, m.GetServerConfig().Port)
}
