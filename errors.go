package tokengate

import "errors"

// Verification failures are returned as *token.VerifyError; match them with errors.Is
// against token.ErrFormat, token.ErrExpired and the other token sentinels. Authorization
// denials are authz.ErrForbidden.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLoginRateLimited   = errors.New("login rate limited")
	ErrLoginUnavailable   = errors.New("login backend unavailable")

	ErrAccountExists              = errors.New("account already exists")
	ErrAccountCreationDisabled    = errors.New("account creation disabled")
	ErrAccountCreationInvalid     = errors.New("invalid account creation request")
	ErrAccountCreationUnavailable = errors.New("account creation backend unavailable")
	ErrAccountRoleInvalid         = errors.New("stored account role is not in the role set")

	ErrNoRepository   = errors.New("credential repository not configured")
	ErrIssueFailed    = errors.New("token issuance failed")
	ErrEngineNotReady = errors.New("engine not initialized")
)
