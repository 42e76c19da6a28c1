package tokengate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/tokengate/credential"
	"github.com/MrEthical07/tokengate/internal/rate"
)

// Register creates an account and returns a token for it.
//
// The account role is always Config.Account.DefaultRole. Nothing in reg can change it.
// A taken username returns ErrAccountExists; a username or password outside policy
// returns ErrAccountCreationInvalid wrapping the credential error.
func (e *Engine) Register(ctx context.Context, reg credential.Registration) (IssuedToken, error) {
	if e == nil || e.hasher == nil {
		return IssuedToken{}, ErrEngineNotReady
	}
	if !e.config.Account.Enabled {
		return IssuedToken{}, ErrAccountCreationDisabled
	}
	if e.repository == nil {
		return IssuedToken{}, ErrNoRepository
	}

	reg.Username = credential.NormalizeUsername(reg.Username)
	if err := reg.Validate(); err != nil {
		e.metricInc(MetricRegisterFailure)
		e.auditRegisterFailure(ctx, "invalid_request")
		return IssuedToken{}, fmt.Errorf("%w: %w", ErrAccountCreationInvalid, err)
	}

	hash, err := e.hasher.Hash(reg.Password)
	reg.Password = ""
	if err != nil {
		e.metricInc(MetricRegisterFailure)
		return IssuedToken{}, fmt.Errorf("%w: %w", ErrAccountCreationUnavailable, err)
	}

	rec := credential.NewRecord(reg.Username, hash, e.config.Account.DefaultRole, e.now())
	if err := e.repository.Create(ctx, rec); err != nil {
		switch {
		case errors.Is(err, credential.ErrUsernameTaken):
			e.metricInc(MetricRegisterDuplicate)
			e.auditRegisterFailure(ctx, "duplicate")
			return IssuedToken{}, ErrAccountExists
		case errors.Is(err, credential.ErrInvalidRecord):
			e.metricInc(MetricRegisterFailure)
			return IssuedToken{}, fmt.Errorf("%w: %w", ErrAccountCreationInvalid, err)
		default:
			e.metricInc(MetricRegisterFailure)
			e.logger.ErrorContext(ctx, "account create failed", "error", err)
			return IssuedToken{}, fmt.Errorf("%w: %w", ErrAccountCreationUnavailable, err)
		}
	}

	issued, err := e.IssueToken(ctx, rec.Subject, rec.Role)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("%w: %w", ErrIssueFailed, err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditEventRegisterSuccess,
		Subject:   rec.Subject,
		Role:      string(rec.Role),
		Success:   true,
	})
	return issued, nil
}

// Login checks username and password against the repository and returns a token
// carrying the role stored on the account.
//
// Unknown usernames and wrong passwords both return ErrInvalidCredentials after the same
// amount of hashing work. With throttling enabled, exhausted budgets return
// ErrLoginRateLimited and a throttle backend failure returns ErrLoginUnavailable.
func (e *Engine) Login(ctx context.Context, username, password string) (IssuedToken, error) {
	if e == nil || e.hasher == nil {
		return IssuedToken{}, ErrEngineNotReady
	}
	if e.repository == nil {
		return IssuedToken{}, ErrNoRepository
	}

	name := credential.NormalizeUsername(username)
	ip := clientIPFromContext(ctx)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.Check(ctx, name, ip); err != nil {
			return IssuedToken{}, e.loginThrottleError(ctx, err)
		}
	}

	if password == "" {
		return IssuedToken{}, e.loginFailure(ctx, name, "", "empty_password")
	}

	rec, err := e.repository.GetByUsername(ctx, name)
	if err != nil {
		if !errors.Is(err, credential.ErrNotFound) {
			e.logger.ErrorContext(ctx, "account lookup failed", "error", err)
			return IssuedToken{}, fmt.Errorf("%w: %w", ErrLoginUnavailable, err)
		}
		_, _ = e.hasher.Verify(password, e.dummyHash)
		return IssuedToken{}, e.loginFailure(ctx, name, "", "user_not_found")
	}

	ok, err := e.hasher.Verify(password, rec.PasswordHash)
	password = ""
	if err != nil {
		e.logger.WarnContext(ctx, "stored password hash unreadable", "subject", rec.Subject)
	}
	if err != nil || !ok {
		return IssuedToken{}, e.loginFailure(ctx, name, rec.Subject, "password_mismatch")
	}

	if !e.issuer.HasRole(rec.Role) {
		e.metricInc(MetricLoginFailure)
		e.logger.WarnContext(ctx, "stored account role not in role set", "subject", rec.Subject)
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditEventLoginFailure,
			Subject:   rec.Subject,
			Reason:    "role_invalid",
		})
		return IssuedToken{}, ErrAccountRoleInvalid
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.Reset(ctx, name); err != nil {
			e.logger.WarnContext(ctx, "login throttle reset failed", "error", err)
		}
	}

	issued, err := e.IssueToken(ctx, rec.Subject, rec.Role)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("%w: %w", ErrIssueFailed, err)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditEventLoginSuccess,
		Subject:   rec.Subject,
		Role:      string(rec.Role),
		Success:   true,
	})
	return issued, nil
}

// loginFailure records one failed attempt and returns the error the caller should see.
func (e *Engine) loginFailure(ctx context.Context, name, subject, reason string) error {
	if e.rateLimiter != nil {
		if err := e.rateLimiter.RecordFailure(ctx, name, clientIPFromContext(ctx)); err != nil {
			return e.loginThrottleError(ctx, err)
		}
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditEventLoginFailure,
		Subject:   subject,
		Reason:    reason,
	})
	return ErrInvalidCredentials
}

// LoginRetryAfter reports how long a client must wait before username can attempt another
// login from the client IP in ctx. It returns 0 when throttling is off, the budget is not
// spent, or the throttle backend cannot be read.
func (e *Engine) LoginRetryAfter(ctx context.Context, username string) time.Duration {
	if e == nil || e.rateLimiter == nil {
		return 0
	}
	d, err := e.rateLimiter.RetryAfter(ctx, credential.NormalizeUsername(username), clientIPFromContext(ctx))
	if err != nil {
		e.logger.WarnContext(ctx, "login throttle lookup failed", "error", err)
		return 0
	}
	return d
}

func (e *Engine) loginThrottleError(ctx context.Context, err error) error {
	if errors.Is(err, rate.ErrRateLimited) {
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, AuditEvent{
			EventType: AuditEventLoginRateLimited,
			Reason:    "rate_limited",
		})
		return ErrLoginRateLimited
	}
	e.logger.ErrorContext(ctx, "login throttle unavailable", "error", err)
	return fmt.Errorf("%w: %w", ErrLoginUnavailable, err)
}

func (e *Engine) auditRegisterFailure(ctx context.Context, reason string) {
	e.emitAudit(ctx, AuditEvent{
		EventType: AuditEventRegisterFailure,
		Reason:    reason,
	})
}
