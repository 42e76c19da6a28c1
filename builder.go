package tokengate

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/tokengate/credential"
	"github.com/MrEthical07/tokengate/internal/audit"
	"github.com/MrEthical07/tokengate/internal/rate"
	"github.com/MrEthical07/tokengate/password"
	"github.com/MrEthical07/tokengate/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Configure it during initialization; a Builder can be
// built once.
type Builder struct {
	config     Config
	repository credential.Repository
	redis      redis.UniversalClient
	auditSink  AuditSink
	logger     *slog.Logger
	clock      func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRepository sets the credential store used by Register and Login. Without one
// those calls return ErrNoRepository; token operations still work.
func (b *Builder) WithRepository(repo credential.Repository) *Builder {
	b.repository = repo
	return b
}

// WithRedis sets the client backing login throttling. It is required when
// Security.EnableLoginThrottle is set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine logger. The default discards everything.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithClock replaces time.Now as the engine's source of the current time.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Security.EnableLoginThrottle && b.redis == nil {
		return nil, errors.New("login throttle requires redis client")
	}

	issuer, err := token.NewIssuer(token.IssuerConfig{
		Secret:        cfg.Token.Secret,
		Roles:         cfg.Token.Roles,
		AllowedExtras: cfg.Token.AllowedExtras,
	})
	if err != nil {
		return nil, err
	}

	verifier, err := token.NewVerifier(cfg.Token.Secret)
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(cfg.Password.params())
	if err != nil {
		return nil, err
	}

	dummy, err := dummyHash(hasher)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:     cfg,
		issuer:     issuer,
		verifier:   verifier,
		hasher:     hasher,
		dummyHash:  dummy,
		repository: b.repository,
		audit:      audit.NewDispatcher(audit.Config(cfg.Audit), b.auditSink),
		metrics:    NewMetrics(cfg.Metrics),
		logger:     b.logger,
		clock:      b.clock,
	}
	if engine.logger == nil {
		engine.logger = slog.New(slog.DiscardHandler)
	}
	if engine.clock == nil {
		engine.clock = time.Now
	}

	if cfg.Security.EnableLoginThrottle {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle: cfg.Security.EnableIPThrottle,
			MaxAttempts:      cfg.Security.MaxLoginAttempts,
			Window:           cfg.Security.LoginCooldownDuration,
		})
	}

	b.built = true

	return engine, nil
}

// dummyHash returns a hash of a random throwaway password. Login verifies against it
// when the username is unknown so both failure paths cost one Argon2 evaluation.
func dummyHash(h *password.Hasher) (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return h.Hash(base64.RawStdEncoding.EncodeToString(buf))
}
