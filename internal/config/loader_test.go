package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWritesDefaultConfigWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if resolved != path {
		t.Fatalf("expected path %s, got %s", path, resolved)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	def := Default()
	if cfg.Addr != def.Addr || cfg.IdentityBackend != def.IdentityBackend || cfg.SessionTTL != def.SessionTTL {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !cfg.SeedFixtures {
		t.Fatalf("expected fixtures to be seeded by default")
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "addr: \":9090\"\nidentity_backend: memory\nsession_ttl: 30m\nseed_fixtures: false\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CHATROOMS_LOG_LEVEL", "warn")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Addr != ":9090" {
		t.Errorf("file value not applied: addr=%s", cfg.Addr)
	}
	if cfg.IdentityBackend != BackendMemory {
		t.Errorf("file value not applied: identity_backend=%s", cfg.IdentityBackend)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("file value not applied: session_ttl=%s", cfg.SessionTTL)
	}
	if cfg.SeedFixtures {
		t.Errorf("file value not applied: seed_fixtures=true")
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("env must override file: log_level=%s", cfg.LogLevel)
	}
	if cfg.HistorySeedSize != Default().HistorySeedSize {
		t.Errorf("default lost: history_seed_size=%d", cfg.HistorySeedSize)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("identity_backend: etcd\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, err := Load(nil, path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestUpdateFrom(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":1", IdentityBackend: BackendRedis, SessionTTL: time.Second})

	if cfg.Addr != ":1" || cfg.IdentityBackend != BackendRedis || cfg.SessionTTL != time.Second {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.JWTSecret != Default().JWTSecret {
		t.Fatalf("zero values must not override: %+v", cfg)
	}
}
