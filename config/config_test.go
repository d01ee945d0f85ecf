package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
http:
  addr: ":9090"
postgres:
  dsn: "postgres://localhost/notes"
room:
  idleGrace: "90s"
admin:
  password: "secret"
`)
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("ADMIN_PASSWORD", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("addr: %q", cfg.HTTP.Addr)
	}
	if cfg.Admin.Password != "secret" {
		t.Fatalf("password: %q", cfg.Admin.Password)
	}
	// дефолты на незаполненных полях
	if cfg.Logging.Service != "note-service" || cfg.Logging.Backend != "std" {
		t.Fatalf("logging defaults: %+v", cfg.Logging)
	}
	if cfg.Room.SendQueue != 32 || cfg.Room.MaxMessageLen != 500 {
		t.Fatalf("room defaults: %+v", cfg.Room)
	}
	if cfg.IdleGraceDur() != 90*time.Second {
		t.Fatalf("idleGrace: %v", cfg.IdleGraceDur())
	}
	if cfg.PersistTimeoutDur() != 3*time.Second {
		t.Fatalf("persistTimeout default: %v", cfg.PersistTimeoutDur())
	}
}

func TestLoadConfigRequiredFields(t *testing.T) {
	path := writeConfig(t, `
http:
  addr: ":8080"
`)
	t.Setenv("CONFIG_PATH", path)
	if _, err := LoadConfig(); err == nil {
		t.Fatal("missing postgres.dsn must be rejected")
	}
}

func TestAdminPasswordEnvOverride(t *testing.T) {
	path := writeConfig(t, `
http:
  addr: ":8080"
postgres:
  dsn: "postgres://localhost/notes"
admin:
  password: "from-file"
`)
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("ADMIN_PASSWORD", "from-env")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Admin.Password != "from-env" {
		t.Fatalf("env must win: %q", cfg.Admin.Password)
	}
}
