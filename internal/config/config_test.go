package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
service:
  network: devnet
  url: https://api.example.com:50051
database:
  in_memory: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Service.Network != "devnet" {
		t.Errorf("expected devnet, got %q", cfg.Service.Network)
	}
	if cfg.Service.RequestTimeout != 30*time.Second {
		t.Errorf("expected 30s request timeout, got %s", cfg.Service.RequestTimeout)
	}
	if cfg.Poll.Interval != 500*time.Millisecond {
		t.Errorf("expected 500ms interval, got %s", cfg.Poll.Interval)
	}
	if cfg.Poll.MaxAttempts != -1 {
		t.Errorf("expected unbounded attempts, got %d", cfg.Poll.MaxAttempts)
	}
	if len(cfg.Logging.OutputPaths) != 1 || cfg.Logging.OutputPaths[0] != "stdout" {
		t.Errorf("unexpected output paths %v", cfg.Logging.OutputPaths)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
service:
  url: http://localhost:50051
  is_final_url: true
`)
	t.Setenv("TRACKER_POLL_INTERVAL", "2s")
	t.Setenv("TRACKER_POLL_MAX_ATTEMPTS", "0")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Poll.Interval != 2*time.Second {
		t.Errorf("expected env interval 2s, got %s", cfg.Poll.Interval)
	}
	if cfg.Poll.MaxAttempts != 0 {
		t.Errorf("expected env max attempts 0, got %d", cfg.Poll.MaxAttempts)
	}
	if !cfg.Service.IsFinalURL {
		t.Errorf("expected is_final_url=true")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config")
	}
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := Config{
		Service: ServiceConfig{Network: "testnet", URL: "not a url"},
		Poll:    PollConfig{Interval: -time.Second},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{
		"app.environment",
		"service.network",
		"service.url",
		"service.request_timeout",
		"poll.interval",
		"database.path",
		"logging.level",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got %v", want, err)
		}
	}
}
