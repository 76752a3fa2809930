package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_ParsesDurationsAndDefaults(t *testing.T) {
	path := writeConfig(t, `
session:
  secret: "test-secret"
  ttl: 48h
link:
  ttl: 5m
rate:
  window: 30s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.TTL.D != 48*time.Hour {
		t.Fatalf("session ttl: got %v", cfg.Session.TTL.D)
	}
	if cfg.Link.TTL.D != 5*time.Minute {
		t.Fatalf("link ttl: got %v", cfg.Link.TTL.D)
	}
	if cfg.Rate.Window.D != 30*time.Second {
		t.Fatalf("rate window: got %v", cfg.Rate.Window.D)
	}

	// Defaults.
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("default addr: got %q", cfg.Server.Addr)
	}
	if cfg.Storage.Driver != "memory" {
		t.Fatalf("default driver: got %q", cfg.Storage.Driver)
	}
	if cfg.Session.Issuer != "giglink" {
		t.Fatalf("default issuer: got %q", cfg.Session.Issuer)
	}
}

func TestLoad_DefaultTTLsWhenOmitted(t *testing.T) {
	path := writeConfig(t, `
session:
  secret: "test-secret"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.TTL.D != 7*24*time.Hour {
		t.Fatalf("default session ttl: got %v", cfg.Session.TTL.D)
	}
	if cfg.Link.TTL.D != 10*time.Minute {
		t.Fatalf("default link ttl: got %v", cfg.Link.TTL.D)
	}
	if cfg.Rate.Limit != 10 || cfg.Rate.Window.D != time.Minute {
		t.Fatalf("default rate: %d/%v", cfg.Rate.Limit, cfg.Rate.Window.D)
	}
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfig(t, `
session:
  secret: "test-secret"
  ttl: "una semana"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("want error on unparseable duration")
	}
}

func TestLoad_RequiresSessionSecret(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9999"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("want error when session secret is missing")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GIGLINK_SESSION_SECRET", "secreto-del-entorno")
	t.Setenv("GIGLINK_ADDR", ":7070")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.Secret != "secreto-del-entorno" {
		t.Fatalf("env secret not applied")
	}
	if cfg.Server.Addr != ":7070" {
		t.Fatalf("env addr not applied: %q", cfg.Server.Addr)
	}
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	path := writeConfig(t, `
session:
  secret: "test-secret"
storage:
  driver: cassandra
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("want error on unknown storage driver")
	}
}
