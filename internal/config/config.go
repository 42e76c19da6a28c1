// Package config loads server settings from the environment, with optional .env files.
// The tokengate core never reads the environment; only cmd/tokengate-server uses this.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/tokengate"
	"github.com/MrEthical07/tokengate/token"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config is the server configuration. Secret renders as [redacted] in logs.
type Config struct {
	Secret      token.Secret
	TokenTTL    time.Duration
	Roles       []token.Role
	DefaultRole token.Role
	Production  bool

	HTTPAddr     string
	StoreBackend string
	RedisAddr    string
	PostgresDSN  string

	KafkaBrokers      []string
	KafkaAuditTopic   string
	AuditDrainTimeout time.Duration

	CORSAllowedOrigins []string
	LogLevel           slog.Level
}

// Load reads envFiles (default ".env") into the process environment without overriding
// existing variables, then builds a Config. A missing default .env is not an error.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if len(envFiles) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	rawSecret := getEnv("TOKENGATE_SECRET", "")
	if rawSecret == "" {
		return nil, errors.New("TOKENGATE_SECRET environment variable is required")
	}
	secret, err := token.NewSecret([]byte(rawSecret))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKENGATE_SECRET: %w", err)
	}

	ttl, err := time.ParseDuration(getEnv("TOKENGATE_TOKEN_TTL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKENGATE_TOKEN_TTL: %w", err)
	}

	drain, err := time.ParseDuration(getEnv("AUDIT_DRAIN_TIMEOUT", "5s"))
	if err != nil || drain < 0 {
		return nil, fmt.Errorf("invalid AUDIT_DRAIN_TIMEOUT %q", getEnv("AUDIT_DRAIN_TIMEOUT", "5s"))
	}

	production, err := strconv.ParseBool(getEnv("TOKENGATE_PRODUCTION", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKENGATE_PRODUCTION: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	cfg := &Config{
		Secret:             secret,
		TokenTTL:           ttl,
		DefaultRole:        token.Role(getEnv("TOKENGATE_DEFAULT_ROLE", "user")),
		Production:         production,
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		PostgresDSN:        getEnv("POSTGRES_DSN", ""),
		KafkaBrokers:       splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaAuditTopic:    getEnv("KAFKA_AUDIT_TOPIC", "tokengate.audit"),
		AuditDrainTimeout:  drain,
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
		LogLevel:           level,
	}
	for _, r := range splitList(getEnv("TOKENGATE_ROLES", "user,admin")) {
		cfg.Roles = append(cfg.Roles, token.Role(r))
	}

	switch cfg.StoreBackend {
	case BackendMemory:
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("STORE_BACKEND=redis requires REDIS_ADDR")
		}
	case BackendPostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("STORE_BACKEND=postgres requires POSTGRES_DSN")
		}
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q", cfg.StoreBackend)
	}

	return cfg, nil
}

// EngineConfig maps the server settings onto an engine configuration. Login throttling
// is enabled only when a Redis address is configured.
func (c *Config) EngineConfig() tokengate.Config {
	ec := tokengate.DefaultConfig()
	ec.Token.Secret = c.Secret
	ec.Token.TTL = c.TokenTTL
	ec.Token.Roles = append([]token.Role(nil), c.Roles...)
	ec.Account.DefaultRole = c.DefaultRole
	ec.Security.ProductionMode = c.Production
	ec.Security.EnableLoginThrottle = c.RedisAddr != ""
	ec.Security.EnableIPThrottle = c.RedisAddr != ""
	ec.Audit.Enabled = len(c.KafkaBrokers) > 0
	ec.Audit.DrainTimeout = c.AuditDrainTimeout
	ec.Metrics = tokengate.MetricsConfig{Enabled: true, EnableLatencyHistograms: true}
	return ec
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
