package tokengate

import (
	"context"
	"log/slog"
	"time"

	"github.com/MrEthical07/tokengate/credential"
	"github.com/MrEthical07/tokengate/internal/audit"
	"github.com/MrEthical07/tokengate/internal/rate"
	"github.com/MrEthical07/tokengate/password"
	"github.com/MrEthical07/tokengate/token"
)

// Engine issues, verifies and authorizes tokens and runs the register and login flows
// that decide which role a token carries.
//
// An Engine is immutable after Build and safe for concurrent use.
type Engine struct {
	config      Config
	issuer      *token.Issuer
	verifier    *token.Verifier
	hasher      *password.Hasher
	dummyHash   string
	repository  credential.Repository
	rateLimiter *rate.Limiter
	audit       *audit.Dispatcher
	metrics     *Metrics
	logger      *slog.Logger
	clock       func() time.Time
}

// IssuedToken is a freshly signed token together with the claims it asserts.
type IssuedToken struct {
	Token     string
	Subject   string
	Role      token.Role
	ExpiresAt time.Time
}

// Close drains pending audit events, for at most Audit.DrainTimeout, and stops the
// dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events discarded because the buffer was full
// or the caller's context ended while waiting.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// TokenTTL is the lifetime given to every issued token.
func (e *Engine) TokenTTL() time.Duration {
	return e.config.Token.TTL
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) now() time.Time {
	return e.clock()
}

// emitAudit fills the request-scoped fields from ctx and hands ev to the dispatcher.
func (e *Engine) emitAudit(ctx context.Context, ev AuditEvent) {
	if e.audit == nil {
		return
	}
	ev.Timestamp = e.now().UTC()
	ev.IP = clientIPFromContext(ctx)
	ev.RequestID = requestIDFromContext(ctx)
	e.audit.Emit(ctx, ev)
}
