// Package config loads genesis settings from genesis.yaml, GENESIS_*
// environment variables and command-line flags, in increasing priority.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/genesis/internal/runtime"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Config is the full genesis configuration.
type Config struct {
	// Rules is a .cue file or a directory holding a CUE rule set.
	Rules string `koanf:"rules"`

	// Store is the SQLite audit database. Empty disables persistence.
	Store string `koanf:"store"`

	Runtime RuntimeConfig `koanf:"runtime"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`

	// Source is the config file that was loaded, if any.
	Source string `koanf:"-"`
}

// RuntimeConfig bounds evaluations.
type RuntimeConfig struct {
	MaxIterations int           `koanf:"max_iterations"`
	Timeout       time.Duration `koanf:"timeout"`
	Parallel      bool          `koanf:"parallel"`
	Workers       int           `koanf:"workers"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text, json
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables it.
	Addr string `koanf:"addr"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Runtime.MaxIterations == 0 {
		c.Runtime.MaxIterations = runtime.DefaultMaxIterations
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

// Validate rejects values no command can use.
func (c *Config) Validate() error {
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if err := c.Runtime.Engine().Validate(); err != nil {
		return fmt.Errorf("runtime: %w", err)
	}
	return nil
}

// Engine converts the runtime section to the engine's config.
func (r RuntimeConfig) Engine() runtime.Config {
	return runtime.Config{
		MaxIterations: r.MaxIterations,
		Timeout:       r.Timeout,
		Parallel:      r.Parallel,
		Workers:       r.Workers,
	}
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch l.Level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", l.Level)
}
