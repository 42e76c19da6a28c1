package token

import (
	"errors"
	"log/slog"
)

const (
	// MinSecretLength is the smallest accepted secret, in bytes (256 bits).
	MinSecretLength = 32
	// minDistinctSecretBytes rejects repeated-character and similar trivially guessable keys.
	minDistinctSecretBytes = 8

	redacted = "[redacted]"
)

var (
	// ErrSecretTooShort is returned by NewSecret for keys under MinSecretLength bytes.
	ErrSecretTooShort = errors.New("token: secret must be at least 32 bytes")
	// ErrSecretLowEntropy is returned by NewSecret for keys built from too few distinct bytes.
	ErrSecretLowEntropy = errors.New("token: secret has too few distinct bytes")
)

// Secret is the process-wide HMAC key. It is immutable once constructed and renders as
// "[redacted]" through fmt, slog and text marshalling.
type Secret struct {
	key []byte
}

// NewSecret validates b and returns a Secret holding a private copy of it.
func NewSecret(b []byte) (Secret, error) {
	if len(b) < MinSecretLength {
		return Secret{}, ErrSecretTooShort
	}

	var seen [256]bool
	distinct := 0
	for _, c := range b {
		if !seen[c] {
			seen[c] = true
			distinct++
		}
	}
	if distinct < minDistinctSecretBytes {
		return Secret{}, ErrSecretLowEntropy
	}

	key := make([]byte, len(b))
	copy(key, b)
	return Secret{key: key}, nil
}

// IsZero reports whether s was never initialised through NewSecret.
func (s Secret) IsZero() bool {
	return len(s.key) == 0
}

func (s Secret) String() string   { return redacted }
func (s Secret) GoString() string { return redacted }

// LogValue implements slog.LogValuer.
func (s Secret) LogValue() slog.Value { return slog.StringValue(redacted) }

// MarshalText keeps the key out of JSON, YAML and similar encoders.
func (s Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }
