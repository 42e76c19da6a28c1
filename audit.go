package tokengate

import (
	"io"

	"github.com/MrEthical07/tokengate/internal/audit"
)

// AuditEvent is one security audit record. Reason carries a stable failure kind such
// as "expired" or "invalid_signature"; tokens, passwords and hashes never appear.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = audit.Sink

type NoOpSink = audit.NoOpSink
type ChannelSink = audit.ChannelSink
type JSONWriterSink = audit.JSONWriterSink

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// Audit event types.
const (
	AuditEventRegisterSuccess  = "register_success"
	AuditEventRegisterFailure  = "register_failure"
	AuditEventLoginSuccess     = "login_success"
	AuditEventLoginFailure     = "login_failure"
	AuditEventLoginRateLimited = "login_rate_limited"
	AuditEventVerifyFailure    = "verify_failure"
	AuditEventAuthorizeDenied  = "authorize_denied"
)
