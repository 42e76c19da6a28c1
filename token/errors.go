package token

import (
	"errors"
	"strconv"
)

// Kind classifies a verification failure. Callers switch on it for diagnostics; clients
// only ever see a generic message.
type Kind uint8

const (
	// KindUnknown is returned by KindOf for errors that did not come from verification.
	KindUnknown Kind = iota
	KindFormat
	KindDecode
	KindAlgorithm
	KindSignature
	KindMissingClaim
	KindExpired
)

// Kinds lists every verification failure kind in verification order.
var Kinds = []Kind{KindFormat, KindDecode, KindAlgorithm, KindSignature, KindMissingClaim, KindExpired}

func (k Kind) String() string {
	switch k {
	case KindFormat:
		return "format"
	case KindDecode:
		return "decode"
	case KindAlgorithm:
		return "algorithm_not_allowed"
	case KindSignature:
		return "invalid_signature"
	case KindMissingClaim:
		return "missing_claim"
	case KindExpired:
		return "expired"
	default:
		return "unknown"
	}
}

var (
	// ErrFormat: the token is not three dot-separated segments.
	ErrFormat = errors.New("token: malformed token")
	// ErrDecode: a segment is not valid base64url or does not hold a JSON object.
	ErrDecode = errors.New("token: undecodable segment")
	// ErrAlgorithmNotAllowed: the header alg is anything other than HS256.
	ErrAlgorithmNotAllowed = errors.New("token: algorithm not allowed")
	// ErrInvalidSignature: the signature does not match header and payload.
	ErrInvalidSignature = errors.New("token: invalid signature")
	// ErrMissingClaim: sub, role, iat or exp is absent or has the wrong type.
	ErrMissingClaim = errors.New("token: missing or invalid required claim")
	// ErrExpired: now is at or past exp.
	ErrExpired = errors.New("token: expired")

	// ErrInvalidIssue reports a contract violation by an Issue call site.
	ErrInvalidIssue = errors.New("token: invalid issue request")
)

func sentinel(k Kind) error {
	switch k {
	case KindFormat:
		return ErrFormat
	case KindDecode:
		return ErrDecode
	case KindAlgorithm:
		return ErrAlgorithmNotAllowed
	case KindSignature:
		return ErrInvalidSignature
	case KindMissingClaim:
		return ErrMissingClaim
	case KindExpired:
		return ErrExpired
	default:
		return nil
	}
}

// VerifyError is the only error type returned by Verifier.Verify.
//
// errors.Is matches the sentinel for Kind. Err, when set, is the low-level cause and is
// meant for internal diagnostics only.
type VerifyError struct {
	Kind  Kind
	Claim string
	Err   error
}

func (e *VerifyError) Error() string {
	msg := sentinel(e.Kind)
	if msg == nil {
		return "token: verification failed"
	}
	if e.Claim != "" {
		return msg.Error() + " " + strconv.Quote(e.Claim)
	}
	return msg.Error()
}

func (e *VerifyError) Is(target error) bool {
	s := sentinel(e.Kind)
	return s != nil && target == s
}

func (e *VerifyError) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from err, or KindUnknown.
func KindOf(err error) Kind {
	var ve *VerifyError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return KindUnknown
}

func verifyError(kind Kind, err error) error {
	return &VerifyError{Kind: kind, Err: err}
}

func missingClaim(name string) error {
	return &VerifyError{Kind: KindMissingClaim, Claim: name}
}
