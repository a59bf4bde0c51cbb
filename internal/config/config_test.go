package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Address != DefaultAddress {
		t.Errorf("expected default address, got %q", cfg.Address)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Namespace != DefaultMetricsNamespace {
		t.Errorf("expected default metrics config, got %+v", cfg.Metrics)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := Default()
	cfg.Address = ":9999"
	cfg.LogLevel = "debug"
	cfg.Snapshot = SnapshotConfig{
		Backend:         "disk",
		Path:            "snap.json",
		IntervalSeconds: 30,
	}

	if err := cfg.Save(dir); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Address != ":9999" || loaded.LogLevel != "debug" {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
	if loaded.Snapshot.Interval() != 30*time.Second {
		t.Errorf("expected 30s interval, got %v", loaded.Snapshot.Interval())
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"disk without path", func(c *Config) { c.Snapshot.Backend = "disk" }, true},
		{"s3 without bucket", func(c *Config) {
			c.Snapshot.Backend = "s3"
			c.Snapshot.Key = "k"
		}, true},
		{"unknown backend", func(c *Config) { c.Snapshot.Backend = "tape" }, true},
		{"valid s3", func(c *Config) {
			c.Snapshot.Backend = "s3"
			c.Snapshot.Bucket = "b"
			c.Snapshot.Key = "k"
		}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSnapshotIntervalDefault(t *testing.T) {
	var s SnapshotConfig
	if s.Interval() != DefaultSnapshotInterval {
		t.Errorf("expected default interval, got %v", s.Interval())
	}
}
