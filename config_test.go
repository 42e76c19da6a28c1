package tokengate

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/tokengate/token"
)

func TestDefaultConfigNeedsOnlySecret(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected default config without secret to fail")
	}

	cfg = testConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestConfigValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero secret", func(c *Config) { c.Token.Secret = token.Secret{} }, "Secret"},
		{"ttl too short", func(c *Config) { c.Token.TTL = 500 * time.Millisecond }, "TTL must be >= 1s"},
		{"fractional ttl", func(c *Config) { c.Token.TTL = 1500 * time.Millisecond }, "whole number"},
		{"no roles", func(c *Config) { c.Token.Roles = nil }, "Roles must not be empty"},
		{"blank role", func(c *Config) { c.Token.Roles = []token.Role{"user", ""} }, "empty role"},
		{"duplicate role", func(c *Config) { c.Token.Roles = []token.Role{"user", "user"} }, "duplicates"},
		{"default role outside set", func(c *Config) { c.Account.DefaultRole = "admin2" }, "DefaultRole"},
		{"missing default role", func(c *Config) { c.Account.DefaultRole = "" }, "DefaultRole"},
		{"low memory", func(c *Config) { c.Password.Memory = 1024 }, "Memory"},
		{"zero time", func(c *Config) { c.Password.Time = 0 }, "Time"},
		{"short salt", func(c *Config) { c.Password.SaltLength = 8 }, "SaltLength"},
		{"throttle attempts", func(c *Config) {
			c.Security.EnableLoginThrottle = true
			c.Security.MaxLoginAttempts = 0
		}, "MaxLoginAttempts"},
		{"ip throttle alone", func(c *Config) { c.Security.EnableIPThrottle = true }, "EnableIPThrottle"},
		{"audit buffer", func(c *Config) { c.Audit = AuditConfig{Enabled: true} }, "BufferSize"},
		{"negative drain timeout", func(c *Config) { c.Audit.DrainTimeout = -time.Second }, "DrainTimeout"},
		{"histograms without metrics", func(c *Config) { c.Metrics = MetricsConfig{EnableLatencyHistograms: true} }, "EnableLatencyHistograms"},
	}

	for _, tc := range cases {
		cfg := testConfig(t)
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error mentioning %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestConfigDisabledAccountsSkipDefaultRole(t *testing.T) {
	cfg := testConfig(t)
	cfg.Account = AccountConfig{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestConfigProductionMode(t *testing.T) {
	base := func() Config {
		cfg := testConfig(t)
		cfg.Security.ProductionMode = true
		cfg.Security.EnableLoginThrottle = true
		cfg.Password.Memory = 64 * 1024
		return cfg
	}

	cfg := base()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid production config, got %v", err)
	}

	cfg = base()
	cfg.Token.TTL = 48 * time.Hour
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected long TTL to fail in production")
	}

	cfg = base()
	cfg.Password.Memory = 16 * 1024
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected low argon2 memory to fail in production")
	}

	cfg = base()
	cfg.Security.EnableLoginThrottle = false
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected disabled throttle to fail in production")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithConfig(testConfig(t))
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil || !strings.Contains(err.Error(), "already used") {
		t.Fatalf("expected builder reuse to fail, got %v", err)
	}
}

func TestBuilderThrottleRequiresRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.EnableLoginThrottle = true

	if _, err := New().WithConfig(cfg).Build(); err == nil || !strings.Contains(err.Error(), "redis") {
		t.Fatalf("expected redis requirement error, got %v", err)
	}
}

func TestDefaultConfigThrottleNeedsRedis(t *testing.T) {
	secret, err := token.NewSecret([]byte(testKey))
	if err != nil {
		t.Fatalf("new secret: %v", err)
	}
	cfg := DefaultConfig()
	cfg.Token.Secret = secret
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config with secret to validate, got %v", err)
	}
	if _, err := New().WithConfig(cfg).Build(); err == nil || !strings.Contains(err.Error(), "login throttle requires redis") {
		t.Fatalf("expected default throttle to require redis, got %v", err)
	}

	cfg.Security.EnableLoginThrottle = false
	cfg.Security.EnableIPThrottle = false
	cfg.Password = PasswordConfig{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	engine, err := New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("expected build without throttles to succeed, got %v", err)
	}
	engine.Close()
}

func TestBuilderCopiesConfig(t *testing.T) {
	cfg := testConfig(t)
	b := New().WithConfig(cfg)
	cfg.Token.Roles[0] = "mutated"

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()

	if got := engine.SecurityReport().Roles[0]; got != "user" {
		t.Fatalf("expected builder to keep its own copy, got %q", got)
	}
}

func TestSecurityReportOmitsSecret(t *testing.T) {
	te := newTestEngine(t, withThrottle(5), withAudit())

	report := te.SecurityReport()
	if report.SigningAlgorithm != "HS256" {
		t.Fatalf("unexpected algorithm %q", report.SigningAlgorithm)
	}
	if !report.LoginThrottleActive || !report.IPThrottleActive || !report.AuditEnabled || !report.MetricsEnabled {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.TokenTTL != time.Hour || report.DefaultRole != "user" {
		t.Fatalf("unexpected report %+v", report)
	}
	if strings.Contains(fmt.Sprintf("%+v %#v", report, te.config), testKey) {
		t.Fatal("secret leaked through formatting")
	}
}
