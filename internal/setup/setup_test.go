package setup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterServer_PreservesOtherEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Claude", "claude_desktop_config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(`{
  "globalShortcut": "Ctrl+Space",
  "mcpServers": {"other": {"command": "/bin/other"}}
}`), 0644))

	entry, err := RegisterServer(path, RegisterOptions{
		BinaryPath: "/opt/rx/mcp-server-lite",
		DataDir:    "/data/rx",
		Store:      "sqlite",
	})
	require.NoError(t, err)
	assert.Equal(t, "/data/rx", entry.Env["RXSAFETY_DATA_DIR"])
	assert.Equal(t, "sqlite", entry.Env["RXSAFETY_STORE"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.JSONEq(t, `"Ctrl+Space"`, string(raw["globalShortcut"]))

	cfg, err := LoadClientConfig(path)
	require.NoError(t, err)
	assert.Len(t, cfg.MCPServers, 2)
	assert.Equal(t, "/opt/rx/mcp-server-lite", cfg.MCPServers[ServerName].Command)
	assert.Equal(t, "/bin/other", cfg.MCPServers["other"].Command)
}

func TestLoadClientConfig_Missing(t *testing.T) {
	cfg, err := LoadClientConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, cfg.MCPServers)
}

func TestLoadClientConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadClientConfig(path)
	assert.Error(t, err)
}

func TestGetStatus(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	status, err := GetStatus(path)
	require.NoError(t, err)
	assert.False(t, status.Registered)

	binary := filepath.Join(dir, "mcp-server-lite")
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0755))
	_, err = RegisterServer(path, RegisterOptions{BinaryPath: binary, DataDir: dir})
	require.NoError(t, err)

	status, err = GetStatus(path)
	require.NoError(t, err)
	assert.True(t, status.Registered)
	assert.Equal(t, binary, status.Binary)
	assert.Equal(t, dir, status.DataDir)
	assert.Empty(t, status.Issues)

	require.NoError(t, os.Remove(binary))
	status, err = GetStatus(path)
	require.NoError(t, err)
	assert.Len(t, status.Issues, 1)
}
