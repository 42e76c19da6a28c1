package tokengate

import (
	"time"

	"github.com/MrEthical07/tokengate/token"
)

// SecurityReport summarizes the effective security posture of an Engine. It never
// carries the secret.
type SecurityReport struct {
	ProductionMode      bool
	SigningAlgorithm    string
	TokenTTL            time.Duration
	Roles               []token.Role
	DefaultRole         token.Role
	AllowedExtras       []string
	RegistrationEnabled bool
	Argon2              PasswordConfigReport
	LoginThrottleActive bool
	IPThrottleActive    bool
	MaxLoginAttempts    int
	LoginCooldown       time.Duration
	AuditEnabled        bool
	MetricsEnabled      bool
}

type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	throttle := e.rateLimiter != nil

	return SecurityReport{
		ProductionMode:      e.config.Security.ProductionMode,
		SigningAlgorithm:    token.Algorithm,
		TokenTTL:            e.config.Token.TTL,
		Roles:               append([]token.Role(nil), e.config.Token.Roles...),
		DefaultRole:         e.config.Account.DefaultRole,
		AllowedExtras:       append([]string(nil), e.config.Token.AllowedExtras...),
		RegistrationEnabled: e.config.Account.Enabled,
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		LoginThrottleActive: throttle,
		IPThrottleActive:    throttle && e.config.Security.EnableIPThrottle,
		MaxLoginAttempts:    e.config.Security.MaxLoginAttempts,
		LoginCooldown:       e.config.Security.LoginCooldownDuration,
		AuditEnabled:        e.audit != nil,
		MetricsEnabled:      e.metrics.Enabled(),
	}
}
