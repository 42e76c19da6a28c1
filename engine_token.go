package tokengate

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/tokengate/authz"
	"github.com/MrEthical07/tokengate/token"
)

// IssueToken signs a token for subject and role lasting Config.Token.TTL.
//
// This is a trusted call site: role must come from server-side state, never from request
// input. Register and Login are the engine's own callers. A role outside the configured
// set, an empty subject or a bad extra returns an error wrapping token.ErrInvalidIssue.
func (e *Engine) IssueToken(ctx context.Context, subject string, role token.Role, extras ...token.Extra) (IssuedToken, error) {
	if e == nil || e.issuer == nil {
		return IssuedToken{}, ErrEngineNotReady
	}

	now := e.now()
	tok, err := e.issuer.Issue(subject, role, e.config.Token.TTL, now, extras...)
	if err != nil {
		e.metricInc(MetricIssueFailure)
		e.logger.WarnContext(ctx, "token issue rejected", "role", string(role))
		return IssuedToken{}, err
	}
	e.metricInc(MetricIssueSuccess)

	return IssuedToken{
		Token:     tok,
		Subject:   subject,
		Role:      role,
		ExpiresAt: time.Unix(now.Unix(), 0).Add(e.config.Token.TTL).UTC(),
	}, nil
}

// Authenticate verifies tokenString against the engine secret and the current time.
//
// Failures are returned as *token.VerifyError so internal callers can inspect the kind.
// Only the kind is logged and audited; clients must be shown a generic message.
func (e *Engine) Authenticate(ctx context.Context, tokenString string) (token.Claims, error) {
	if e == nil || e.verifier == nil {
		return token.Claims{}, ErrEngineNotReady
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
	}

	claims, err := e.verifier.Verify(tokenString, e.now())

	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}

	if err != nil {
		kind := token.KindOf(err)
		if id, ok := verifyFailureMetric(kind); ok {
			e.metricInc(id)
		}
		e.logger.DebugContext(ctx, "token verification failed", "kind", kind.String())
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditEventVerifyFailure,
			Success:   false,
			Reason:    kind.String(),
		})
		return token.Claims{}, err
	}

	e.metricInc(MetricVerifySuccess)
	return claims, nil
}

// Authorize authenticates tokenString and then requires its role to equal role exactly.
// A valid token with another role returns authz.ErrForbidden.
func (e *Engine) Authorize(ctx context.Context, tokenString string, role token.Role) (token.Claims, error) {
	claims, err := e.Authenticate(ctx, tokenString)
	if err != nil {
		return token.Claims{}, err
	}

	if err := authz.RequireRole(claims, role); err != nil {
		e.metricInc(MetricAuthorizeForbidden)
		e.logger.DebugContext(ctx, "authorization denied", "required_role", string(role))
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditEventAuthorizeDenied,
			Subject:   claims.Subject(),
			Role:      string(claims.Role()),
			Success:   false,
			Reason:    "forbidden",
			Metadata:  map[string]string{"required_role": string(role)},
		})
		return token.Claims{}, err
	}

	e.metricInc(MetricAuthorizeSuccess)
	return claims, nil
}

// IsVerificationError reports whether err came from token verification.
func IsVerificationError(err error) bool {
	var ve *token.VerifyError
	return errors.As(err, &ve)
}
