// Package config loads the server configuration from YAML, overlaying
// a complete set of defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the spectrum server configuration
type Config struct {
	Framework FrameworkConfig `yaml:"framework"`
	Engine    EngineConfig    `yaml:"engine"`
	SharedMem SharedMemConfig `yaml:"sharedmem"`
	Mirror    MirrorConfig    `yaml:"mirror"`
	Trace     TraceConfig     `yaml:"trace"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// FrameworkConfig contains general settings
type FrameworkConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// EngineConfig contains histogram engine settings
type EngineConfig struct {
	RequestQueueDepth int `yaml:"request_queue_depth"`
	EventBatchSize    int `yaml:"event_batch_size"`
}

// SharedMemConfig contains display shared-memory settings
type SharedMemConfig struct {
	File           string `yaml:"file"`
	SpectrumSlots  int    `yaml:"spectrum_slots"`
	PoolMegabytes  int    `yaml:"pool_megabytes"`
	RefreshSeconds int    `yaml:"refresh_seconds"`
}

// MirrorConfig contains mirror server settings
type MirrorConfig struct {
	ListenAddress  string `yaml:"listen_address"`
	MaxConnections int    `yaml:"max_connections"`
}

// TraceConfig contains trace store settings
type TraceConfig struct {
	LifetimeSeconds int `yaml:"lifetime_seconds"`
}

// MetricsConfig contains Prometheus exposition settings
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_address"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Framework: FrameworkConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
		Engine: EngineConfig{
			RequestQueueDepth: 128,
			EventBatchSize:    256,
		},
		SharedMem: SharedMemConfig{
			File:           "/tmp/spectrum-server.shm",
			SpectrumSlots:  100,
			PoolMegabytes:  64,
			RefreshSeconds: 2,
		},
		Mirror: MirrorConfig{
			ListenAddress:  ":30020",
			MaxConnections: 64,
		},
		Trace: TraceConfig{
			LifetimeSeconds: 60,
		},
		Metrics: MetricsConfig{
			Enabled:       false,
			ListenAddress: ":9105",
		},
	}
}

// LoadConfig reads a YAML file over the defaults. An empty path yields
// the defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for usable values
func (c *Config) Validate() error {
	switch c.Framework.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.Framework.LogLevel)
	}
	switch c.Framework.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q", c.Framework.LogFormat)
	}
	if c.Engine.RequestQueueDepth <= 0 {
		return fmt.Errorf("request_queue_depth must be positive, got %d", c.Engine.RequestQueueDepth)
	}
	if c.Engine.EventBatchSize <= 0 {
		return fmt.Errorf("event_batch_size must be positive, got %d", c.Engine.EventBatchSize)
	}
	if c.SharedMem.SpectrumSlots <= 0 {
		return fmt.Errorf("spectrum_slots must be positive, got %d", c.SharedMem.SpectrumSlots)
	}
	if c.SharedMem.PoolMegabytes <= 0 {
		return fmt.Errorf("pool_megabytes must be positive, got %d", c.SharedMem.PoolMegabytes)
	}
	if c.SharedMem.RefreshSeconds <= 0 {
		return fmt.Errorf("refresh_seconds must be positive, got %d", c.SharedMem.RefreshSeconds)
	}
	if c.Trace.LifetimeSeconds <= 0 {
		return fmt.Errorf("lifetime_seconds must be positive, got %d", c.Trace.LifetimeSeconds)
	}
	return nil
}

// PoolWords returns the channel-pool capacity in 4-byte units.
func (c *SharedMemConfig) PoolWords() int {
	return c.PoolMegabytes * 1024 * 1024 / 4
}

// Refresh returns the binder refresh period.
func (c *SharedMemConfig) Refresh() time.Duration {
	return time.Duration(c.RefreshSeconds) * time.Second
}

// Lifetime returns the default trace lifetime.
func (c *TraceConfig) Lifetime() time.Duration {
	return time.Duration(c.LifetimeSeconds) * time.Second
}
