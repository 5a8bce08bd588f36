package setup

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drug-repurposing-engine/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Cache: config.CacheConfig{
			Backend:    "memory",
			LRUSize:    64,
			DiseaseTTL: time.Hour,
			CorpusTTL:  time.Hour,
		},
		History: config.HistoryConfig{
			Backend:    "sqlite",
			SQLitePath: filepath.Join(t.TempDir(), "history.db"),
		},
	}
}

func TestBuildEngineOffline(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	engine, err := BuildEngine(context.Background(), testConfig(t), logger, nil)
	require.NoError(t, err)
	defer engine.Close()

	assert.NotNil(t, engine.Analysis)
	assert.NotNil(t, engine.Library)
	assert.NotNil(t, engine.Corpus)
	assert.NotNil(t, engine.History)
	assert.NotNil(t, engine.Client)
}

func TestNewLoggerParsesLevel(t *testing.T) {
	logger := NewLogger(config.LoggingConfig{Level: "debug", Format: "text"})
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger = NewLogger(config.LoggingConfig{Level: "nonsense"})
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel(), "bad level falls back to info")
}

func TestRegisterMCPServer(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "claude_desktop_config.json")
	binary := filepath.Join(dir, "mcp-server")
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0755))

	registered, err := RegisterMCPServer(configPath, binary)
	require.NoError(t, err)
	assert.Equal(t, binary, registered)

	cfg, err := LoadHostConfig(configPath)
	require.NoError(t, err)
	entry, ok := cfg.MCPServers[ServerName]
	require.True(t, ok)
	assert.Equal(t, binary, entry.Command)
}

func TestRegisterMCPServerKeepsOtherEntries(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "claude_desktop_config.json")

	existing := &HostConfig{MCPServers: map[string]HostServerEntry{
		"other-tool": {Command: "/usr/local/bin/other-tool"},
	}}
	require.NoError(t, SaveHostConfig(configPath, existing))

	_, err := RegisterMCPServer(configPath, "/opt/engine/mcp-server")
	require.NoError(t, err)

	cfg, err := LoadHostConfig(configPath)
	require.NoError(t, err)
	assert.Len(t, cfg.MCPServers, 2)
	assert.Equal(t, "/usr/local/bin/other-tool", cfg.MCPServers["other-tool"].Command)
}

func TestLoadHostConfigMissingFile(t *testing.T) {
	cfg, err := LoadHostConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Empty(t, cfg.MCPServers)
}
