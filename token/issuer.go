package token

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// headerJSON is the only header this package ever emits.
const headerJSON = `{"alg":"HS256","typ":"JWT"}`

var headerSegment = EncodeSegment([]byte(headerJSON))

// IssuerConfig configures an Issuer.
type IssuerConfig struct {
	Secret Secret
	// Roles is the closed set of roles Issue accepts.
	Roles []Role
	// AllowedExtras names the non-reserved claims Issue accepts.
	AllowedExtras []string
}

// Issuer builds and signs tokens. It holds read-only state and is safe for concurrent use.
type Issuer struct {
	secret Secret
	roles  map[Role]struct{}
	extras map[string]struct{}
}

// NewIssuer validates cfg and returns an Issuer.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if cfg.Secret.IsZero() {
		return nil, errors.New("token: issuer requires a secret")
	}
	if len(cfg.Roles) == 0 {
		return nil, errors.New("token: issuer requires at least one role")
	}

	roles := make(map[Role]struct{}, len(cfg.Roles))
	for _, r := range cfg.Roles {
		if strings.TrimSpace(string(r)) == "" {
			return nil, errors.New("token: issuer role set contains an empty role")
		}
		if !utf8.ValidString(string(r)) {
			return nil, fmt.Errorf("token: role %q is not valid UTF-8", r)
		}
		roles[r] = struct{}{}
	}

	extras := make(map[string]struct{}, len(cfg.AllowedExtras))
	for _, name := range cfg.AllowedExtras {
		if strings.TrimSpace(name) == "" {
			return nil, errors.New("token: allowed extra claim name is empty")
		}
		if !utf8.ValidString(name) {
			return nil, fmt.Errorf("token: extra claim name %q is not valid UTF-8", name)
		}
		if isReservedClaim(name) {
			return nil, fmt.Errorf("token: %q is a reserved claim and cannot be an extra", name)
		}
		extras[name] = struct{}{}
	}

	return &Issuer{secret: cfg.Secret, roles: roles, extras: extras}, nil
}

// HasRole reports whether role belongs to the issuer's role set.
func (i *Issuer) HasRole(role Role) bool {
	_, ok := i.roles[role]
	return ok
}

// Issue returns a signed token asserting subject and role, valid from now for ttl.
//
// The call site decides role; it must never be copied from request input. ttl must be a
// positive whole number of seconds. Extras must be allow-listed and appear at most once.
// Any violation returns ErrInvalidIssue and no token.
func (i *Issuer) Issue(subject string, role Role, ttl time.Duration, now time.Time, extras ...Extra) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidIssue)
	}
	if !utf8.ValidString(subject) {
		return "", fmt.Errorf("%w: subject is not valid UTF-8", ErrInvalidIssue)
	}
	if !i.HasRole(role) {
		return "", fmt.Errorf("%w: role %q is not in the role set", ErrInvalidIssue, role)
	}
	if ttl < time.Second || ttl%time.Second != 0 {
		return "", fmt.Errorf("%w: ttl must be a positive whole number of seconds", ErrInvalidIssue)
	}

	iat := now.Unix()
	ttlSeconds := int64(ttl / time.Second)
	if iat > math.MaxInt64-ttlSeconds {
		return "", fmt.Errorf("%w: expiry overflows", ErrInvalidIssue)
	}
	exp := iat + ttlSeconds

	payload, err := i.payload(subject, role, iat, exp, extras)
	if err != nil {
		return "", err
	}

	signingInput := headerSegment + Separator + EncodeSegment(payload)
	tok := signingInput + Separator + EncodeSegment(Sign(signingInput, i.secret))
	if len(tok) > MaxTokenLength {
		return "", fmt.Errorf("%w: token is %d bytes, limit is %d", ErrInvalidIssue, len(tok), MaxTokenLength)
	}
	return tok, nil
}

func (i *Issuer) payload(subject string, role Role, iat, exp int64, extras []Extra) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"sub":`)
	writeJSON(&buf, subject)
	buf.WriteString(`,"role":`)
	writeJSON(&buf, string(role))
	fmt.Fprintf(&buf, `,"iat":%d,"exp":%d`, iat, exp)

	seen := make(map[string]struct{}, len(extras))
	for _, e := range extras {
		if isReservedClaim(e.name) {
			return nil, fmt.Errorf("%w: %q is a reserved claim", ErrInvalidIssue, e.name)
		}
		if _, ok := i.extras[e.name]; !ok {
			return nil, fmt.Errorf("%w: extra claim %q is not allowed", ErrInvalidIssue, e.name)
		}
		if _, dup := seen[e.name]; dup {
			return nil, fmt.Errorf("%w: extra claim %q given twice", ErrInvalidIssue, e.name)
		}
		seen[e.name] = struct{}{}
		if v, ok := e.value.(string); ok && !utf8.ValidString(v) {
			return nil, fmt.Errorf("%w: extra claim %q is not valid UTF-8", ErrInvalidIssue, e.name)
		}

		buf.WriteByte(',')
		writeJSON(&buf, e.name)
		buf.WriteByte(':')
		writeJSON(&buf, e.value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v any) {
	// Values are strings, int64 or bool; Marshal cannot fail on them.
	b, _ := json.Marshal(v)
	buf.Write(b)
}
