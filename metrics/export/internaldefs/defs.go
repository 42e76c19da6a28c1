package internaldefs

import (
	"github.com/MrEthical07/tokengate"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   tokengate.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   tokengate.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exported from Engine.AuditDropped.
const (
	AuditDroppedName = "tokengate_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

var CounterDefs = []CounterDef{
	{ID: tokengate.MetricIssueSuccess, Name: "tokengate_issue_success_total", Help: "Tokens issued."},
	{ID: tokengate.MetricIssueFailure, Name: "tokengate_issue_failure_total", Help: "Issue calls rejected for invalid input."},
	{ID: tokengate.MetricRegisterSuccess, Name: "tokengate_register_success_total", Help: "Accounts registered."},
	{ID: tokengate.MetricRegisterDuplicate, Name: "tokengate_register_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: tokengate.MetricRegisterFailure, Name: "tokengate_register_failure_total", Help: "Registrations rejected for policy or backend errors."},
	{ID: tokengate.MetricLoginSuccess, Name: "tokengate_login_success_total", Help: "Successful login attempts."},
	{ID: tokengate.MetricLoginFailure, Name: "tokengate_login_failure_total", Help: "Failed login attempts."},
	{ID: tokengate.MetricLoginRateLimited, Name: "tokengate_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: tokengate.MetricVerifySuccess, Name: "tokengate_verify_success_total", Help: "Tokens verified."},
	{ID: tokengate.MetricVerifyFormat, Name: "tokengate_verify_format_total", Help: "Tokens rejected for shape."},
	{ID: tokengate.MetricVerifyDecode, Name: "tokengate_verify_decode_total", Help: "Tokens rejected for encoding or JSON errors."},
	{ID: tokengate.MetricVerifyAlgorithm, Name: "tokengate_verify_algorithm_not_allowed_total", Help: "Tokens rejected for header algorithm."},
	{ID: tokengate.MetricVerifySignature, Name: "tokengate_verify_invalid_signature_total", Help: "Tokens rejected for signature mismatch."},
	{ID: tokengate.MetricVerifyMissingClaim, Name: "tokengate_verify_missing_claim_total", Help: "Tokens rejected for absent or mistyped claims."},
	{ID: tokengate.MetricVerifyExpired, Name: "tokengate_verify_expired_total", Help: "Tokens rejected as expired."},
	{ID: tokengate.MetricAuthorizeSuccess, Name: "tokengate_authorize_success_total", Help: "Role checks passed."},
	{ID: tokengate.MetricAuthorizeForbidden, Name: "tokengate_authorize_forbidden_total", Help: "Role checks denied."},
}

var HistogramDefs = []HistogramDef{
	{ID: tokengate.MetricVerifyLatency, Name: "tokengate_verify_latency_seconds", Help: "Token verification latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds, matching
// tokengate.HistogramBucketsMicros.
var HistogramUpperBounds = []float64{
	0.00005,
	0.0001,
	0.00025,
	0.0005,
	0.001,
	0.005,
	0.025,
}

var HistogramBoundSuffix = []string{
	"50us",
	"100us",
	"250us",
	"500us",
	"1ms",
	"5ms",
	"25ms",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero-filling or
// truncating as needed.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
