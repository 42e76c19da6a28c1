package token

import "sort"

// Role is a principal's role. Values come from the issuer's closed role set.
type Role string

// Reserved payload claim names. None of them can be supplied as an extra claim.
const (
	ClaimSubject   = "sub"
	ClaimRole      = "role"
	ClaimIssuedAt  = "iat"
	ClaimExpiresAt = "exp"
)

func isReservedClaim(name string) bool {
	switch name {
	case ClaimSubject, ClaimRole, ClaimIssuedAt, ClaimExpiresAt:
		return true
	}
	return false
}

// Claims is the verified content of a token. It is a value type with unexported fields;
// nothing outside this package can construct a non-zero Claims except through
// Verifier.Verify.
type Claims struct {
	subject   string
	role      Role
	issuedAt  int64
	expiresAt int64
	extra     map[string]any
}

func (c Claims) Subject() string  { return c.subject }
func (c Claims) Role() Role       { return c.role }
func (c Claims) IssuedAt() int64  { return c.issuedAt }
func (c Claims) ExpiresAt() int64 { return c.expiresAt }

// IsZero reports whether c is the zero Claims returned alongside a verification error.
func (c Claims) IsZero() bool {
	return c.subject == "" && c.role == "" && c.issuedAt == 0 && c.expiresAt == 0 && c.extra == nil
}

// Extra returns the extra claim name. Values are string, bool, int64 or float64.
func (c Claims) Extra(name string) (any, bool) {
	v, ok := c.extra[name]
	return v, ok
}

// ExtraNames returns the extra claim names in sorted order.
func (c Claims) ExtraNames() []string {
	names := make([]string, 0, len(c.extra))
	for name := range c.extra {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Extra is a single non-reserved claim passed to Issuer.Issue. Build one with
// StringClaim, IntClaim or BoolClaim.
type Extra struct {
	name  string
	value any
}

// Name returns the claim name.
func (e Extra) Name() string { return e.name }

func StringClaim(name, value string) Extra  { return Extra{name: name, value: value} }
func IntClaim(name string, value int64) Extra { return Extra{name: name, value: value} }
func BoolClaim(name string, value bool) Extra  { return Extra{name: name, value: value} }
