// Package config loads and saves the cellgraph.json configuration file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	// FileName is the name of the configuration file.
	FileName = "cellgraph.json"

	// DefaultAddress is the default live server listen address.
	DefaultAddress = ":8090"

	// DefaultMetricsNamespace is the default Prometheus namespace.
	DefaultMetricsNamespace = "cellgraph"

	// DefaultSnapshotInterval is the default snapshot save interval.
	DefaultSnapshotInterval = time.Minute
)

// Config represents the complete cellgraph.json configuration.
type Config struct {
	// Address is the live server listen address.
	Address string `json:"address,omitempty"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `json:"logLevel,omitempty"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// Tracing enables OpenTelemetry spans on the live server.
	Tracing bool `json:"tracing,omitempty"`

	// Snapshot contains snapshot persistence configuration.
	Snapshot SnapshotConfig `json:"snapshot,omitempty"`
}

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	// Enabled turns the collector and the /metrics endpoint on.
	Enabled bool `json:"enabled,omitempty"`

	// Namespace is the metrics namespace.
	Namespace string `json:"namespace,omitempty"`
}

// SnapshotConfig configures snapshot persistence.
type SnapshotConfig struct {
	// Backend is "disk" or "s3"; empty disables snapshots.
	Backend string `json:"backend,omitempty"`

	// Path is the snapshot file path for the disk backend.
	Path string `json:"path,omitempty"`

	// Bucket is the S3 bucket for the s3 backend.
	Bucket string `json:"bucket,omitempty"`

	// Key is the S3 object key for the s3 backend.
	Key string `json:"key,omitempty"`

	// IntervalSeconds is how often to save; 0 means one minute.
	IntervalSeconds int `json:"intervalSeconds,omitempty"`
}

// Interval returns the snapshot interval as a duration.
func (s SnapshotConfig) Interval() time.Duration {
	if s.IntervalSeconds <= 0 {
		return DefaultSnapshotInterval
	}
	return time.Duration(s.IntervalSeconds) * time.Second
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Address:  DefaultAddress,
		LogLevel: "info",
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultMetricsNamespace,
		},
	}
}

// Load reads the configuration from dir/cellgraph.json.
// A missing file returns the defaults.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to dir/cellgraph.json.
func (c *Config) Save(dir string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}

	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}

	switch c.Snapshot.Backend {
	case "":
	case "disk":
		if c.Snapshot.Path == "" {
			return errors.New("config: disk snapshot backend requires path")
		}
	case "s3":
		if c.Snapshot.Bucket == "" || c.Snapshot.Key == "" {
			return errors.New("config: s3 snapshot backend requires bucket and key")
		}
	default:
		return fmt.Errorf("config: unknown snapshot backend %q", c.Snapshot.Backend)
	}

	return nil
}

// SlogLevel returns the configured level as a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
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
