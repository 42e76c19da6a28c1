package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdefghijklmnopqrstuv"

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TOKENGATE_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TokenTTL != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", cfg.TokenTTL)
	}
	if len(cfg.Roles) != 2 || cfg.Roles[0] != "user" || cfg.Roles[1] != "admin" {
		t.Fatalf("unexpected roles %v", cfg.Roles)
	}
	if cfg.DefaultRole != "user" || cfg.HTTPAddr != ":8080" || cfg.StoreBackend != BackendMemory {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("expected info level, got %v", cfg.LogLevel)
	}
	if cfg.AuditDrainTimeout != 5*time.Second {
		t.Fatalf("expected 5s drain timeout, got %v", cfg.AuditDrainTimeout)
	}

	ec := cfg.EngineConfig()
	if ec.Security.EnableLoginThrottle {
		t.Fatal("expected throttle off without redis")
	}
	if err := ec.Validate(); err != nil {
		t.Fatalf("engine config invalid: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TOKENGATE_SECRET", testSecret)
	t.Setenv("TOKENGATE_TOKEN_TTL", "15m")
	t.Setenv("TOKENGATE_ROLES", " reader , editor ,admin")
	t.Setenv("TOKENGATE_DEFAULT_ROLE", "reader")
	t.Setenv("TOKENGATE_PRODUCTION", "true")
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("AUDIT_DRAIN_TIMEOUT", "750ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TokenTTL != 15*time.Minute || cfg.DefaultRole != "reader" || !cfg.Production {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if len(cfg.Roles) != 3 || cfg.Roles[1] != "editor" {
		t.Fatalf("unexpected roles %v", cfg.Roles)
	}
	if cfg.StoreBackend != BackendRedis || len(cfg.KafkaBrokers) != 2 {
		t.Fatalf("unexpected backends %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", cfg.LogLevel)
	}

	ec := cfg.EngineConfig()
	if !ec.Security.EnableLoginThrottle || !ec.Audit.Enabled || !ec.Security.ProductionMode {
		t.Fatalf("unexpected engine config %+v", ec.Security)
	}
	if ec.Audit.DrainTimeout != 750*time.Millisecond {
		t.Fatalf("expected 750ms drain timeout, got %v", ec.Audit.DrainTimeout)
	}
}

func TestLoadRejects(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{}, "TOKENGATE_SECRET"},
		{"short secret", map[string]string{"TOKENGATE_SECRET": "short"}, "TOKENGATE_SECRET"},
		{"low entropy secret", map[string]string{"TOKENGATE_SECRET": strings.Repeat("ab", 20)}, "TOKENGATE_SECRET"},
		{"bad ttl", map[string]string{"TOKENGATE_SECRET": testSecret, "TOKENGATE_TOKEN_TTL": "soon"}, "TOKENGATE_TOKEN_TTL"},
		{"bad backend", map[string]string{"TOKENGATE_SECRET": testSecret, "STORE_BACKEND": "mongo"}, "STORE_BACKEND"},
		{"redis without addr", map[string]string{"TOKENGATE_SECRET": testSecret, "STORE_BACKEND": "redis"}, "REDIS_ADDR"},
		{"postgres without dsn", map[string]string{"TOKENGATE_SECRET": testSecret, "STORE_BACKEND": "postgres"}, "POSTGRES_DSN"},
		{"bad log level", map[string]string{"TOKENGATE_SECRET": testSecret, "LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"negative drain timeout", map[string]string{"TOKENGATE_SECRET": testSecret, "AUDIT_DRAIN_TIMEOUT": "-1s"}, "AUDIT_DRAIN_TIMEOUT"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv("TOKENGATE_SECRET", "")
			os.Unsetenv("TOKENGATE_SECRET")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := fmt.Sprintf("TOKENGATE_SECRET=%s\nHTTP_ADDR=:9999\n", testSecret)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("TOKENGATE_SECRET", "")
	os.Unsetenv("TOKENGATE_SECRET")
	t.Setenv("HTTP_ADDR", "")
	os.Unsetenv("HTTP_ADDR")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Fatalf("expected addr from file, got %q", cfg.HTTPAddr)
	}
	if _, err := Load(filepath.Join(dir, "missing.env")); err == nil {
		t.Fatal("expected explicit missing file to fail")
	}
}

func TestSecretNotPrinted(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TOKENGATE_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if strings.Contains(fmt.Sprintf("%+v %v", *cfg, cfg.Secret), testSecret) {
		t.Fatal("secret printed")
	}
}
