// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, defaults, and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "0.0.0.0:9090"

database:
  path: "./test.db"

webhook:
  dedupe_ttl: "5m"
  dedupe_max_entries: 500

cors:
  allowed_origins:
    - "http://localhost:3000"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:9090" {
		t.Errorf("HTTPAddr: got %q", cfg.Server.HTTPAddr)
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path: got %q", cfg.Database.Path)
	}
	if cfg.Webhook.DedupeTTL != 5*time.Minute {
		t.Errorf("DedupeTTL: got %v, want 5m", cfg.Webhook.DedupeTTL)
	}
	if cfg.Webhook.DedupeMaxEntries != 500 {
		t.Errorf("DedupeMaxEntries: got %d, want 500", cfg.Webhook.DedupeMaxEntries)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("AllowedOrigins: got %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging: got %+v", cfg.Logging)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  path: "./test.db"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.HTTPAddr != defaultHTTPAddr {
		t.Errorf("HTTPAddr default: got %q, want %q", cfg.Server.HTTPAddr, defaultHTTPAddr)
	}
	if cfg.Webhook.DedupeTTL != defaultDedupeTTL {
		t.Errorf("DedupeTTL default: got %v, want %v", cfg.Webhook.DedupeTTL, defaultDedupeTTL)
	}
	if cfg.Webhook.DedupeMaxEntries != defaultDedupeMaxEntries {
		t.Errorf("DedupeMaxEntries default: got %d", cfg.Webhook.DedupeMaxEntries)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging defaults: got %+v", cfg.Logging)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "/var/lib/convo/test.db")

	path := writeConfig(t, `
database:
  path: "${TEST_DB_PATH}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Path != "/var/lib/convo/test.db" {
		t.Errorf("env expansion failed: got %q", cfg.Database.Path)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `
database:
  path: "./test.db"
webhook:
  dedupe_ttl: "not-a-duration"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "dedupe_ttl") {
		t.Errorf("error should mention dedupe_ttl: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}
