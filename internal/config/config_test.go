package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(FileEnv, "")
	t.Setenv("IMPORT_POLL_INTERVAL", "")
	t.Setenv("IMPORT_RELAXED_POLL_INTERVAL", "")
	t.Setenv("NATS_URL", "")
	t.Setenv("WATCH_SITE_IDS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ImportPollInterval != 3*time.Second {
		t.Fatalf("expected default poll interval 3s, got %v", cfg.ImportPollInterval)
	}
	if cfg.ImportRelaxedPollInterval != 30*time.Second {
		t.Fatalf("expected default relaxed interval 30s, got %v", cfg.ImportRelaxedPollInterval)
	}
	if cfg.EstablishmentsPollInterval != 5*time.Second {
		t.Fatalf("expected establishments interval 5s, got %v", cfg.EstablishmentsPollInterval)
	}
	if cfg.NATSURL != "" || cfg.NATSSubject != "directory.imports.transitions" {
		t.Fatalf("unexpected nats defaults: %q %q", cfg.NATSURL, cfg.NATSSubject)
	}
	if len(cfg.WatchSiteIDs) != 0 {
		t.Fatalf("expected no watched sites, got %v", cfg.WatchSiteIDs)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.yaml")
	content := "directory_api_url: http://directory.internal:8000\n" +
		"IMPORT_POLL_INTERVAL: 5s\n" +
		"IMPORT_RELAXED_POLL_INTERVAL: 0\n" +
		"WATCH_SITE_IDS: [1, 4]\n" +
		"BREAKER_ENABLED: false\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(FileEnv, path)
	t.Setenv("DIRECTORY_API_URL", "")
	t.Setenv("IMPORT_POLL_INTERVAL", "2s")
	t.Setenv("IMPORT_RELAXED_POLL_INTERVAL", "")
	t.Setenv("WATCH_SITE_IDS", "")
	t.Setenv("BREAKER_ENABLED", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DirectoryAPIURL != "http://directory.internal:8000" {
		t.Fatalf("expected url from file, got %q", cfg.DirectoryAPIURL)
	}
	if cfg.ImportPollInterval != 2*time.Second {
		t.Fatalf("expected env to win, got %v", cfg.ImportPollInterval)
	}
	if cfg.ImportRelaxedPollInterval != 0 {
		t.Fatalf("expected relaxed polling disabled, got %v", cfg.ImportRelaxedPollInterval)
	}
	if len(cfg.WatchSiteIDs) != 2 || cfg.WatchSiteIDs[1] != 4 {
		t.Fatalf("unexpected watched sites %v", cfg.WatchSiteIDs)
	}
	if cfg.Resilience.BreakerEnabled {
		t.Fatal("expected breaker disabled from file")
	}
}

func TestLoadRejectsBadSiteIDs(t *testing.T) {
	t.Setenv(FileEnv, "")
	t.Setenv("WATCH_SITE_IDS", "1,abc")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid site id")
	}
}

func TestLoadFailsOnMissingFile(t *testing.T) {
	t.Setenv(FileEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
