package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", filepath.Join(t.TempDir(), "home"))
	t.Setenv("PARLEY_SERVER_URL", "")
	t.Setenv("PARLEY_LOG_LEVEL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerURL() != "http://127.0.0.1:8787" {
		t.Fatalf("unexpected server url: %q", cfg.ServerURL())
	}
	if cfg.LogLevel() != "info" {
		t.Fatalf("unexpected log level: %q", cfg.LogLevel())
	}
	if cfg.StoreBackend() != "file" {
		t.Fatalf("unexpected store backend: %q", cfg.StoreBackend())
	}
	if !cfg.MarkdownEnabled() {
		t.Fatalf("markdown should default to enabled")
	}
}

func TestLoadFromTOML(t *testing.T) {
	home := filepath.Join(t.TempDir(), "home")
	t.Setenv("HOME", home)
	t.Setenv("PARLEY_SERVER_URL", "")
	t.Setenv("PARLEY_LOG_LEVEL", "")

	dataDir := filepath.Join(home, ".parley")
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	content := []byte("[server]\nurl = \"http://127.0.0.1:9999/\"\n\n[logging]\nlevel = \"debug\"\n\n[store]\nbackend = \"bbolt\"\n\n[ui]\nmarkdown = false\n")
	if err := os.WriteFile(filepath.Join(dataDir, "config.toml"), content, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerURL() != "http://127.0.0.1:9999" {
		t.Fatalf("unexpected server url: %q", cfg.ServerURL())
	}
	if cfg.LogLevel() != "debug" {
		t.Fatalf("unexpected log level: %q", cfg.LogLevel())
	}
	if cfg.StoreBackend() != "bbolt" {
		t.Fatalf("unexpected store backend: %q", cfg.StoreBackend())
	}
	if cfg.MarkdownEnabled() {
		t.Fatalf("markdown override ignored")
	}
}

func TestEnvOverridesTOML(t *testing.T) {
	home := filepath.Join(t.TempDir(), "home")
	t.Setenv("HOME", home)

	dataDir := filepath.Join(home, ".parley")
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	content := []byte("[server]\nurl = \"http://from-toml:1111\"\n")
	if err := os.WriteFile(filepath.Join(dataDir, "config.toml"), content, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv("PARLEY_SERVER_URL", "http://from-env:2222")
	t.Setenv("PARLEY_LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerURL() != "http://from-env:2222" {
		t.Fatalf("env override lost: %q", cfg.ServerURL())
	}
	if cfg.LogLevel() != "warn" {
		t.Fatalf("env log level lost: %q", cfg.LogLevel())
	}
}
