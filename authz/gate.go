// Package authz makes role-based access decisions on verified token claims.
//
// The decision is exact string equality between the required role and the role the
// claims carry. There is no hierarchy, wildcard or implicit administrator.
//
// # What this package must NOT do
//
//   - Accept raw tokens or request data. Only token.Claims produced by a Verifier reach it.
//   - Recompute a role from anything other than the claims.
package authz

import (
	"errors"

	"github.com/MrEthical07/tokengate/token"
)

// ErrForbidden is returned when the claims do not carry the required role.
var ErrForbidden = errors.New("authz: forbidden")

// RequireRole returns nil when claims.Role() equals expected and ErrForbidden otherwise.
// Zero claims and an empty expected role are always forbidden.
func RequireRole(claims token.Claims, expected token.Role) error {
	if expected == "" || claims.Role() != expected {
		return ErrForbidden
	}
	return nil
}
