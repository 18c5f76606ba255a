// Package config loads application configuration from defaults, an optional
// config file, and HMS_-prefixed environment variables, in increasing order
// of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Backend names a store implementation.
const (
	BackendFlatFile = "flatfile"
	BackendMemory   = "memory"
	BackendBolt     = "bolt"
)

// Config holds all runtime settings.
type Config struct {
	// DataDir is where table files (or the bolt database) live.
	DataDir string `mapstructure:"data_dir"`
	// Backend selects the store implementation: flatfile, memory or bolt.
	Backend string `mapstructure:"backend"`
	// LogLevel is a zap level string (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`
	// Environment tags logs and traces (development, production).
	Environment string `mapstructure:"environment"`
	// JournalEnabled turns the audit journal on or off.
	JournalEnabled bool `mapstructure:"journal_enabled"`
	// TracingEnabled turns span export on or off.
	TracingEnabled bool `mapstructure:"tracing_enabled"`
	// QueueSize bounds the single-writer mutation queue.
	QueueSize int `mapstructure:"queue_size"`
}

// Load reads configuration. An empty path skips the config file and uses
// defaults plus environment variables only.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("data_dir", "./data")
	v.SetDefault("backend", BackendFlatFile)
	v.SetDefault("log_level", "info")
	v.SetDefault("environment", "development")
	v.SetDefault("journal_enabled", true)
	v.SetDefault("tracing_enabled", false)
	v.SetDefault("queue_size", 64)

	v.SetEnvPrefix("HMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no store can run with.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFlatFile, BackendMemory, BackendBolt:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.DataDir == "" && c.Backend != BackendMemory {
		return fmt.Errorf("data_dir is required for backend %q", c.Backend)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be positive, got %d", c.QueueSize)
	}
	return nil
}
