package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Quiz.Source != SourceEmbedded || cfg.Quiz.ID != "liver-health" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Results.TopLimit != 15 || cfg.Results.RecentLimit != 20 || cfg.Results.AllLimit != 50 {
		t.Fatalf("unexpected limits %+v", cfg.Results)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Fatalf("unexpected read timeout %s", cfg.Server.ReadTimeout)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte(`
server:
  port: "9090"
  cors_origins: ["https://quiz.example.com"]
redis:
  addr: "localhost:6379"
  ttl: 5m
quiz:
  ttl: 2m
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SUPABASE_JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/quiz?sslmode=disable")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || len(cfg.Server.CORSOrigins) != 1 {
		t.Fatalf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Redis.TTL != 5*time.Minute || cfg.Quiz.TTL != 2*time.Minute {
		t.Fatalf("durations not decoded: redis=%s quiz=%s", cfg.Redis.TTL, cfg.Quiz.TTL)
	}
	if cfg.Auth.JWTSecret != "s3cret" || cfg.Postgres.URL == "" {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestValidateQuizSource(t *testing.T) {
	t.Setenv("QUIZ_SOURCE", "postgres")
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected postgres source without url to fail")
	}

	t.Setenv("QUIZ_SOURCE", "mongo")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected unknown source to fail")
	}
}

func TestDuration(t *testing.T) {
	if got := Duration(0, time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}
	if got := Duration(3*time.Second, time.Minute); got != 3*time.Second {
		t.Fatalf("expected value, got %s", got)
	}
}
