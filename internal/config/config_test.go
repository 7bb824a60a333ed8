package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}
	if cfg.Tracker.DBPath != nil || cfg.Stats.Last != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestLoadConfigDecodesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `[tracker]
db-path = "/tmp/sleep.db"
workers = 2
time-format = "2006-01-02 15:04"

[stats]
last = 14
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Tracker.DBPath == nil || *cfg.Tracker.DBPath != "/tmp/sleep.db" {
		t.Fatalf("unexpected db-path %v", cfg.Tracker.DBPath)
	}
	if cfg.Tracker.Workers == nil || *cfg.Tracker.Workers != 2 {
		t.Fatalf("unexpected workers %v", cfg.Tracker.Workers)
	}
	if cfg.Tracker.TimeFormat == nil || *cfg.Tracker.TimeFormat != "2006-01-02 15:04" {
		t.Fatalf("unexpected time-format %v", cfg.Tracker.TimeFormat)
	}
	if cfg.Stats.Last == nil || *cfg.Stats.Last != 14 {
		t.Fatalf("unexpected last %v", cfg.Stats.Last)
	}
	if cfg.Stats.Window != nil {
		t.Fatalf("expected unset window to stay nil")
	}
}

func TestLoadConfigRejectsUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[tracker]\nlang = \"en\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "tracker.lang") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestDefaultPathsFollowXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "sleeptrack", "config.toml") {
		t.Fatalf("unexpected config path %q", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "sleeptrack", "sleeptrack.db") {
		t.Fatalf("unexpected db path %q", got)
	}
}
