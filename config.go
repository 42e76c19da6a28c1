package tokengate

import (
	"errors"
	"time"

	"github.com/MrEthical07/tokengate/password"
	"github.com/MrEthical07/tokengate/token"
)

// Config is the full engine configuration. Start from [DefaultConfig] and override fields;
// [Builder.Build] validates the result.
type Config struct {
	Token    TokenConfig
	Account  AccountConfig
	Password PasswordConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls issuance and verification.
//
// Secret is required. TTL must be a positive whole number of seconds. Roles is the
// closed set of roles the engine will ever sign. AllowedExtras names the additional
// primitive claims callers may attach through [Engine.IssueToken].
type TokenConfig struct {
	Secret        token.Secret
	TTL           time.Duration
	Roles         []token.Role
	AllowedExtras []string
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig controls self-service registration. DefaultRole is the only role a
// registered account can receive and must be a member of TokenConfig.Roles.
type AccountConfig struct {
	Enabled     bool
	DefaultRole token.Role
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id cost parameters. Memory is in KiB.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func (p PasswordConfig) params() password.Params {
	return password.Params{
		Memory:      p.Memory,
		Passes:      p.Time,
		Parallelism: p.Parallelism,
		SaltLength:  p.SaltLength,
		KeyLength:   p.KeyLength,
	}
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds login throttling and production hardening switches.
//
// With EnableLoginThrottle set, failed logins are counted per username (and per client
// IP when EnableIPThrottle is also set) in Redis; MaxLoginAttempts failures inside
// LoginCooldownDuration block further attempts until the window expires.
type SecurityConfig struct {
	ProductionMode        bool
	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
//
// DrainTimeout bounds Engine.Close; events still queued when it elapses are dropped.
type AuditConfig struct {
	Enabled      bool
	BufferSize   int
	DropIfFull   bool
	DrainTimeout time.Duration
}

// MetricsConfig controls in-process counters and the verify latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

const (
	productionMaxTTL       = 24 * time.Hour
	productionMinMemoryKiB = 64 * 1024
)

// DefaultConfig returns a configuration with every field except Token.Secret set to a
// usable value. The login and IP throttles are on by default, so Build also needs
// WithRedis unless Security.EnableLoginThrottle and Security.EnableIPThrottle are
// turned off.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL:   time.Hour,
			Roles: []token.Role{"user", "admin"},
		},
		Account: AccountConfig{
			Enabled:     true,
			DefaultRole: "user",
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Security: SecurityConfig{
			ProductionMode:        false,
			EnableLoginThrottle:   true,
			EnableIPThrottle:      true,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:      false,
			BufferSize:   1024,
			DropIfFull:   true,
			DrainTimeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Roles = append([]token.Role(nil), cfg.Token.Roles...)
	out.Token.AllowedExtras = append([]string(nil), cfg.Token.AllowedExtras...)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error, if any.
func (c *Config) Validate() error {
	// Token
	if c.Token.Secret.IsZero() {
		return errors.New("Token Secret is required")
	}
	if c.Token.TTL < time.Second {
		return errors.New("Token TTL must be >= 1s")
	}
	if c.Token.TTL%time.Second != 0 {
		return errors.New("Token TTL must be a whole number of seconds")
	}
	if len(c.Token.Roles) == 0 {
		return errors.New("Token Roles must not be empty")
	}
	seen := make(map[token.Role]struct{}, len(c.Token.Roles))
	for _, r := range c.Token.Roles {
		if r == "" {
			return errors.New("Token Roles must not contain an empty role")
		}
		if _, dup := seen[r]; dup {
			return errors.New("Token Roles must not contain duplicates")
		}
		seen[r] = struct{}{}
	}

	// Account
	if c.Account.Enabled {
		if c.Account.DefaultRole == "" {
			return errors.New("Account DefaultRole is required when Account is enabled")
		}
		if _, ok := seen[c.Account.DefaultRole]; !ok {
			return errors.New("Account DefaultRole must be one of Token Roles")
		}
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("Security LoginCooldownDuration must be > 0")
		}
	}
	if c.Security.EnableIPThrottle && !c.Security.EnableLoginThrottle {
		return errors.New("Security EnableIPThrottle requires EnableLoginThrottle")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Audit.DrainTimeout < 0 {
		return errors.New("Audit DrainTimeout must be >= 0")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	// Production hardening
	if c.Security.ProductionMode {
		if c.Token.TTL > productionMaxTTL {
			return errors.New("Token TTL must be <= 24h in production mode")
		}
		if c.Password.Memory < productionMinMemoryKiB {
			return errors.New("Password Memory must be >= 65536 KB in production mode")
		}
		if !c.Security.EnableLoginThrottle {
			return errors.New("Security EnableLoginThrottle is required in production mode")
		}
	}

	return nil
}
