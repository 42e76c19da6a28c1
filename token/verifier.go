package token

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// MaxTokenLength bounds the input Verify is willing to parse.
const MaxTokenLength = 8 << 10

var (
	errSegmentCount = errors.New("token must have exactly three segments")
	errEmptySegment = errors.New("header and payload segments must be non-empty")
	errTooLong      = errors.New("token exceeds maximum length")
)

// Verifier checks tokens signed with a single secret. It holds read-only state and is
// safe for concurrent use.
type Verifier struct {
	secret Secret
}

// NewVerifier returns a Verifier bound to secret.
func NewVerifier(secret Secret) (*Verifier, error) {
	if secret.IsZero() {
		return nil, errors.New("token: verifier requires a secret")
	}
	return &Verifier{secret: secret}, nil
}

// Verify parses tokenString and returns its claims if every check passes at now.
// Checks run in order and the first failure is returned as a *VerifyError:
//
//  1. three segments, header and payload non-empty (KindFormat)
//  2. header decodes to a JSON object (KindDecode)
//  3. header alg is exactly "HS256" (KindAlgorithm)
//  4. signature matches (KindSignature)
//  5. payload decodes to a JSON object (KindDecode)
//  6. sub, role, iat, exp present with the right types (KindMissingClaim)
//  7. now is before exp (KindExpired)
//
// On failure the returned Claims is always the zero value.
func (v *Verifier) Verify(tokenString string, now time.Time) (Claims, error) {
	if len(tokenString) > MaxTokenLength {
		return Claims{}, verifyError(KindFormat, errTooLong)
	}
	if strings.Count(tokenString, Separator) != 2 {
		return Claims{}, verifyError(KindFormat, errSegmentCount)
	}
	first := strings.Index(tokenString, Separator)
	last := strings.LastIndex(tokenString, Separator)
	headerSeg := tokenString[:first]
	payloadSeg := tokenString[first+1 : last]
	signatureSeg := tokenString[last+1:]
	if headerSeg == "" || payloadSeg == "" {
		return Claims{}, verifyError(KindFormat, errEmptySegment)
	}

	header, err := decodeObject(headerSeg)
	if err != nil {
		return Claims{}, err
	}

	if !algorithmAllowed(header["alg"]) {
		return Claims{}, verifyError(KindAlgorithm, nil)
	}

	signature, err := DecodeSegment(signatureSeg)
	if err != nil {
		return Claims{}, verifyError(KindSignature, err)
	}
	if !VerifySignature(tokenString[:last], signature, v.secret) {
		return Claims{}, verifyError(KindSignature, nil)
	}

	payload, err := decodeObject(payloadSeg)
	if err != nil {
		return Claims{}, err
	}

	claims, err := claimsFromPayload(payload)
	if err != nil {
		return Claims{}, err
	}

	if now.Unix() >= claims.expiresAt {
		return Claims{}, verifyError(KindExpired, nil)
	}
	return claims, nil
}

// decodeObject decodes a segment holding a JSON object. A JSON null yields a nil map.
func decodeObject(seg string) (map[string]json.RawMessage, error) {
	raw, err := DecodeSegment(seg)
	if err != nil {
		return nil, err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, verifyError(KindDecode, err)
	}
	return obj, nil
}

func algorithmAllowed(raw json.RawMessage) bool {
	s, ok := jsonString(raw)
	return ok && s == Algorithm
}

func claimsFromPayload(payload map[string]json.RawMessage) (Claims, error) {
	sub, ok := jsonString(payload[ClaimSubject])
	if !ok || sub == "" {
		return Claims{}, missingClaim(ClaimSubject)
	}
	role, ok := jsonString(payload[ClaimRole])
	if !ok || role == "" {
		return Claims{}, missingClaim(ClaimRole)
	}
	iat, ok := jsonInt(payload[ClaimIssuedAt])
	if !ok {
		return Claims{}, missingClaim(ClaimIssuedAt)
	}
	exp, ok := jsonInt(payload[ClaimExpiresAt])
	if !ok {
		return Claims{}, missingClaim(ClaimExpiresAt)
	}

	c := Claims{subject: sub, role: Role(role), issuedAt: iat, expiresAt: exp}
	for name, raw := range payload {
		if isReservedClaim(name) {
			continue
		}
		if val, ok := jsonPrimitive(raw); ok {
			if c.extra == nil {
				c.extra = make(map[string]any)
			}
			c.extra[name] = val
		}
	}
	return c, nil
}

// jsonString accepts only a JSON string literal.
func jsonString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// jsonInt accepts only a JSON number written as an integer that fits in int64.
func jsonInt(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !(raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9')) {
		return 0, false
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// jsonPrimitive decodes strings, booleans and numbers. Objects, arrays and null are dropped.
func jsonPrimitive(raw json.RawMessage) (any, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, false
	}
	switch c := raw[0]; {
	case c == '"':
		return jsonString(raw)
	case c == 't':
		return true, true
	case c == 'f':
		return false, true
	case c == '-' || (c >= '0' && c <= '9'):
		if n, ok := jsonInt(raw); ok {
			return n, true
		}
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return nil, false
		}
		return f, true
	}
	return nil, false
}
