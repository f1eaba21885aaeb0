package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/segment-olap/config"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "olap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/clean", cfg.Paths.CleanDir)
	assert.Equal(t, "data/results", cfg.Paths.ResultsDir)
	assert.Equal(t, "data/dw/smart_sales.db", cfg.Database.Path)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.Engine.StrictKeys)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	// GIVEN: a YAML file setting a few values
	path := writeFile(t, `
server:
  port: 9090
  read_timeout: 5s
engine:
  max_rows: 100
  strict_keys: true
paths:
  results_dir: out
`)

	// WHEN: loading
	cfg, err := config.Load(path)
	require.NoError(t, err)

	// THEN: file values win, the rest keep defaults
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 100, cfg.Engine.MaxRows)
	assert.True(t, cfg.Engine.StrictKeys)
	assert.Equal(t, "out", cfg.Paths.ResultsDir)
	assert.Equal(t, "data/clean", cfg.Paths.CleanDir)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "server:\n  port: 9090\nengine:\n  max_rows: 100\n")
	t.Setenv("OLAP_SERVER_PORT", "7070")
	t.Setenv("OLAP_DATABASE_FILE", "/tmp/dw.db")
	t.Setenv("OLAP_ENGINE_REFRESH_INTERVAL", "30m")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/tmp/dw.db", cfg.Database.Path)
	assert.Equal(t, 30*time.Minute, cfg.Engine.RefreshInterval)
	assert.Equal(t, 100, cfg.Engine.MaxRows, "unset env must not reset file values")
}

func TestLoad_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad port", "server:\n  port: 70000\n"},
		{"negative max rows", "engine:\n  max_rows: -1\n"},
		{"negative refresh interval", "engine:\n  refresh_interval: -1s\n"},
		{"bad log output", "logging:\n  output: syslog\n"},
		{"bad yaml", "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeFile(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestEngineConfig_ModelOptions(t *testing.T) {
	opts := config.EngineConfig{MaxRows: 10, StrictKeys: true}.ModelOptions()
	assert.Equal(t, 10, opts.MaxRows)
	assert.True(t, opts.StrictKeys)
}
