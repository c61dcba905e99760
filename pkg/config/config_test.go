package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2*time.Second, cfg.SharedMem.Refresh())
	assert.Equal(t, time.Minute, cfg.Trace.Lifetime())
	assert.Equal(t, 64*1024*1024/4, cfg.SharedMem.PoolWords())
}

func TestLoadEmptyPathYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
framework:
  log_level: debug
sharedmem:
  spectrum_slots: 10
  refresh_seconds: 5
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Framework.LogLevel)
	assert.Equal(t, 10, cfg.SharedMem.SpectrumSlots)
	assert.Equal(t, 5*time.Second, cfg.SharedMem.Refresh())
	// Untouched sections keep their defaults.
	assert.Equal(t, ":30020", cfg.Mirror.ListenAddress)
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
framework:
  log_level: loud
`), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	assert.Error(t, err)
}
