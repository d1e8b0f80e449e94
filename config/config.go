// Package config loads the telemetry subsystem configuration from YAML
// with environment overrides. A missing file is not an error: the
// subsystem falls back to defaults so a misconfigured client still runs.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/clduab11/thinkrank-perf/monitoring"
)

// Duration wraps time.Duration so YAML values can be written as strings
// like "5s" as well as integer nanoseconds.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(v)
	default:
		return fmt.Errorf("invalid duration value %v", raw)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config is the root configuration.
type Config struct {
	Sampler  SamplerConfig  `yaml:"sampler"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	Quality  QualityConfig  `yaml:"quality"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SamplerConfig controls the frame sample window.
type SamplerConfig struct {
	Capacity  int     `yaml:"capacity"`
	TargetFPS float64 `yaml:"target_fps"`
}

// MonitorConfig controls snapshot publication.
type MonitorConfig struct {
	SnapshotInterval Duration `yaml:"snapshot_interval"`
	EventBuffer      int      `yaml:"event_buffer"`
}

// AnalyzerConfig controls bottleneck analysis.
type AnalyzerConfig struct {
	Enabled    bool                            `yaml:"enabled"`
	Interval   Duration                        `yaml:"interval"`
	Thresholds monitoring.BottleneckThresholds `yaml:"thresholds"`
}

// QualityConfig controls the adaptive quality controller.
type QualityConfig struct {
	Platform           string   `yaml:"platform"`
	InitialLevel       int      `yaml:"initial_level"` // -1 derives from device tier
	Cooldown           Duration `yaml:"cooldown"`
	UpgradeStableEvals int      `yaml:"upgrade_stable_evals"`
}

// ServerConfig controls the metrics/event HTTP endpoint.
type ServerConfig struct {
	ListenAddr     string   `yaml:"listen_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns the full default configuration.
func Default() Config {
	return Config{
		Sampler: SamplerConfig{
			Capacity:  monitoring.DefaultSamplerCapacity,
			TargetFPS: 60,
		},
		Monitor: MonitorConfig{
			SnapshotInterval: Duration(monitoring.DefaultSnapshotInterval),
			EventBuffer:      monitoring.DefaultEventBuffer,
		},
		Analyzer: AnalyzerConfig{
			Enabled:    true,
			Interval:   Duration(monitoring.DefaultAnalysisInterval),
			Thresholds: monitoring.DefaultBottleneckThresholds(),
		},
		Quality: QualityConfig{
			Platform:           "android",
			InitialLevel:       -1,
			Cooldown:           Duration(5 * time.Second),
			UpgradeStableEvals: 3,
		},
		Server: ServerConfig{
			ListenAddr:     ":9090",
			AllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults. A missing file logs a notice and
// returns the defaults; a malformed file is an error. Environment
// overrides (optionally from a .env file) are applied last.
func Load(path string, logger *slog.Logger) (Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		logger.Info("config file not found, using defaults", "path", path)
	case err != nil:
		return cfg, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnvOverrides layers PERF_* environment variables over the loaded
// config. A .env file in the working directory is honored when present.
func applyEnvOverrides(cfg *Config) {
	// Missing .env is the normal case.
	_ = godotenv.Load()

	if addr := os.Getenv("PERF_LISTEN_ADDR"); addr != "" {
		cfg.Server.ListenAddr = addr
	}
	if level := os.Getenv("PERF_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if platform := os.Getenv("PERF_PLATFORM"); platform != "" {
		cfg.Quality.Platform = platform
	}
}

// Validate range-checks the configuration.
func (c Config) Validate() error {
	if c.Sampler.Capacity < monitoring.MinSamplerCapacity || c.Sampler.Capacity > monitoring.MaxSamplerCapacity {
		return fmt.Errorf("sampler capacity %d out of range [%d, %d]",
			c.Sampler.Capacity, monitoring.MinSamplerCapacity, monitoring.MaxSamplerCapacity)
	}
	if c.Sampler.TargetFPS <= 0 {
		return fmt.Errorf("target fps must be positive")
	}
	if c.Monitor.SnapshotInterval <= 0 {
		return fmt.Errorf("snapshot interval must be positive")
	}
	if c.Analyzer.Enabled && c.Analyzer.Interval <= 0 {
		return fmt.Errorf("analyzer interval must be positive")
	}
	if c.Quality.Cooldown <= 0 {
		return fmt.Errorf("quality cooldown must be positive")
	}
	if c.Quality.UpgradeStableEvals < 1 {
		return fmt.Errorf("upgrade stable evals must be at least 1")
	}
	switch c.Quality.Platform {
	case "ios", "android", "desktop":
	default:
		return fmt.Errorf("unknown platform %q", c.Quality.Platform)
	}
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("listen address is empty")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}

// SlogLevel maps the configured level name to a slog.Level.
func (c Config) SlogLevel() slog.Level {
	switch c.Logging.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
