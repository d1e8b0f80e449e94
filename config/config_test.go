package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clduab11/thinkrank-perf/monitoring"
)

func clearPerfEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PERF_LISTEN_ADDR", "PERF_LOG_LEVEL", "PERF_PLATFORM"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	clearPerfEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), slog.Default())
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, monitoring.DefaultSamplerCapacity, cfg.Sampler.Capacity)
	assert.Equal(t, ":9090", cfg.Server.ListenAddr)
	assert.Equal(t, -1, cfg.Quality.InitialLevel)
}

func TestLoadOverridesDefaults(t *testing.T) {
	clearPerfEnv(t)

	path := filepath.Join(t.TempDir(), "perfmon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sampler:
  capacity: 240
  target_fps: 30
quality:
  platform: ios
  initial_level: 2
  cooldown: 10s
  upgrade_stable_evals: 5
server:
  listen_addr: ":8085"
logging:
  level: debug
`), 0o644))

	cfg, err := Load(path, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, 240, cfg.Sampler.Capacity)
	assert.Equal(t, 30.0, cfg.Sampler.TargetFPS)
	assert.Equal(t, "ios", cfg.Quality.Platform)
	assert.Equal(t, 2, cfg.Quality.InitialLevel)
	assert.Equal(t, Duration(10*time.Second), cfg.Quality.Cooldown)
	assert.Equal(t, 5, cfg.Quality.UpgradeStableEvals)
	assert.Equal(t, ":8085", cfg.Server.ListenAddr)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())

	// Sections absent from the file keep their defaults.
	assert.Equal(t, Duration(monitoring.DefaultSnapshotInterval), cfg.Monitor.SnapshotInterval)
	assert.True(t, cfg.Analyzer.Enabled)
}

func TestDurationAcceptsIntegerNanoseconds(t *testing.T) {
	clearPerfEnv(t)

	path := filepath.Join(t.TempDir(), "perfmon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("monitor:\n  snapshot_interval: 2000000000\n"), 0o644))

	cfg, err := Load(path, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, Duration(2*time.Second), cfg.Monitor.SnapshotInterval)
}

func TestLoadMalformedFile(t *testing.T) {
	clearPerfEnv(t)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sampler: [oops"), 0o644))

	_, err := Load(path, slog.Default())
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	clearPerfEnv(t)
	t.Setenv("PERF_LISTEN_ADDR", ":7070")
	t.Setenv("PERF_LOG_LEVEL", "warn")
	t.Setenv("PERF_PLATFORM", "desktop")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), slog.Default())
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.ListenAddr)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "desktop", cfg.Quality.Platform)
}

func TestEnvOverridesBeatFile(t *testing.T) {
	clearPerfEnv(t)
	t.Setenv("PERF_LISTEN_ADDR", ":7070")

	path := filepath.Join(t.TempDir(), "perfmon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  listen_addr: \":8085\"\n"), 0o644))

	cfg, err := Load(path, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.ListenAddr)
}

func TestValidate(t *testing.T) {
	mutations := []struct {
		name   string
		mutate func(*Config)
	}{
		{"capacity too small", func(c *Config) { c.Sampler.Capacity = monitoring.MinSamplerCapacity - 1 }},
		{"capacity too large", func(c *Config) { c.Sampler.Capacity = monitoring.MaxSamplerCapacity + 1 }},
		{"zero target fps", func(c *Config) { c.Sampler.TargetFPS = 0 }},
		{"zero snapshot interval", func(c *Config) { c.Monitor.SnapshotInterval = 0 }},
		{"zero analyzer interval", func(c *Config) { c.Analyzer.Interval = 0 }},
		{"zero cooldown", func(c *Config) { c.Quality.Cooldown = 0 }},
		{"zero stable evals", func(c *Config) { c.Quality.UpgradeStableEvals = 0 }},
		{"unknown platform", func(c *Config) { c.Quality.Platform = "switch" }},
		{"empty listen addr", func(c *Config) { c.Server.ListenAddr = "" }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}

	for _, tt := range mutations {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestValidateDisabledAnalyzerSkipsInterval(t *testing.T) {
	cfg := Default()
	cfg.Analyzer.Enabled = false
	cfg.Analyzer.Interval = 0
	assert.NoError(t, cfg.Validate())
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for name, want := range tests {
		cfg := Default()
		cfg.Logging.Level = name
		assert.Equal(t, want, cfg.SlogLevel())
	}
}
