package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"CONFIG_FILE", "PORT", "DOC_STORE", "NATS_URL", "TIMER_CAS_RETRIES", "CORS_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.DocStore != DocStoreSQLite || cfg.CASRetries != 3 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.NATSURL != "" {
		t.Fatalf("expected in-process bus by default, got %q", cfg.NATSURL)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("expected two default origins, got %v", cfg.CORSOrigins)
	}
}

func TestLoadFileOverlayAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timer.yaml")
	content := []byte(`
port: "9090"
token_ttl_hours: 12
cors_origins: ["https://table.example.com"]
nats:
  url: nats://nats:4222
  subject_prefix: madamis.timer
cas_retries: 5
log_pretty: false
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")
	t.Setenv("DOC_STORE", "")
	t.Setenv("NATS_URL", "")
	t.Setenv("NATS_SUBJECT_PREFIX", "")
	t.Setenv("TIMER_CAS_RETRIES", "")
	t.Setenv("TOKEN_TTL_HOURS", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("LOG_PRETTY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "7070" {
		t.Fatalf("expected env to win over file, got %s", cfg.Port)
	}
	if cfg.TokenTTL != 12*time.Hour || cfg.CASRetries != 5 || cfg.LogPretty {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.NATSURL != "nats://nats:4222" || cfg.NATSSubjectPrefix != "madamis.timer" {
		t.Fatalf("unexpected nats config %q %q", cfg.NATSURL, cfg.NATSSubjectPrefix)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "https://table.example.com" {
		t.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
}

func TestLoadRejectsPostgresWithoutDSN(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DOC_STORE", "postgres")
	t.Setenv("POSTGRES_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for postgres without dsn")
	}
}
