package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, BackendFlatFile, cfg.Backend)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.JournalEnabled)
	assert.False(t, cfg.TracingEnabled)
	assert.Equal(t, 64, cfg.QueueSize)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HMS_BACKEND", BackendMemory)
	t.Setenv("HMS_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hms.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: bolt\ndata_dir: /tmp/hms\nqueue_size: 8\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendBolt, cfg.Backend)
	assert.Equal(t, "/tmp/hms", cfg.DataDir)
	assert.Equal(t, 8, cfg.QueueSize)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Backend: "cloud", DataDir: "./data", QueueSize: 1}
	assert.Error(t, cfg.Validate())

	cfg = &Config{Backend: BackendFlatFile, DataDir: "", QueueSize: 1}
	assert.Error(t, cfg.Validate())

	cfg = &Config{Backend: BackendMemory, DataDir: "", QueueSize: 1}
	assert.NoError(t, cfg.Validate(), "memory backend needs no data dir")

	cfg = &Config{Backend: BackendMemory, QueueSize: 0}
	assert.Error(t, cfg.Validate())
}
