package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKiB   uint32 = 8 * 1024
	minPasses      uint32 = 1
	minLanes       uint8  = 1
	minSaltBytes   uint32 = 16
	minKeyBytes    uint32 = 16
	MinLength             = 10
	MaxLength             = 1024
	phcAlgorithm          = "argon2id"
	phcFieldsCount        = 6
)

var (
	ErrTooShort        = errors.New("password: shorter than 10 bytes")
	ErrTooLong         = errors.New("password: longer than 1024 bytes")
	ErrMalformedHash   = errors.New("password: malformed hash")
	ErrUnsupportedHash = errors.New("password: unsupported hash format")
)

// Params are the Argon2id cost parameters. Memory is in KiB.
type Params struct {
	Memory      uint32
	Passes      uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams follows the RFC 9106 second recommended option.
func DefaultParams() Params {
	return Params{Memory: 64 * 1024, Passes: 3, Parallelism: 2, SaltLength: 16, KeyLength: 32}
}

// Validate checks p against the package minimums.
func (p Params) Validate() error {
	switch {
	case p.Memory < minMemoryKiB:
		return errors.New("password memory must be >= 8192 KiB")
	case p.Passes < minPasses:
		return errors.New("password passes must be >= 1")
	case p.Parallelism < minLanes:
		return errors.New("password parallelism must be >= 1")
	case p.SaltLength < minSaltBytes:
		return errors.New("password salt length must be >= 16")
	case p.KeyLength < minKeyBytes:
		return errors.New("password key length must be >= 16")
	}
	return nil
}

// Hasher hashes with fixed Params. It is safe for concurrent use.
type Hasher struct {
	params Params
	rand   io.Reader
}

// NewHasher returns a Hasher for p.
func NewHasher(p Params) (*Hasher, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Hasher{params: p, rand: rand.Reader}, nil
}

// CheckLength reports whether plaintext is within the accepted length range.
// Bytes are used as given, with no Unicode normalisation.
func CheckLength(plaintext string) error {
	if len(plaintext) < MinLength {
		return ErrTooShort
	}
	if len(plaintext) > MaxLength {
		return ErrTooLong
	}
	return nil
}

// Hash derives a PHC-encoded Argon2id hash of plaintext with a fresh random salt.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if err := CheckLength(plaintext); err != nil {
		return "", err
	}

	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(h.rand, salt); err != nil {
		return "", fmt.Errorf("password: read salt: %w", err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, h.params.Passes, h.params.Memory, h.params.Parallelism, h.params.KeyLength)
	return encodePHC(h.params, salt, key), nil
}

// Verify reports whether plaintext matches encoded. A false result with a nil error
// means the password is wrong; an error means encoded could not be used at all.
func (h *Hasher) Verify(plaintext, encoded string) (bool, error) {
	ph, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}
	if len(plaintext) > MaxLength {
		return false, nil
	}

	key := argon2.IDKey([]byte(plaintext), ph.salt, ph.params.Passes, ph.params.Memory, ph.params.Parallelism, ph.params.KeyLength)
	return subtle.ConstantTimeCompare(key, ph.key) == 1, nil
}

// NeedsRehash reports whether encoded was produced with weaker parameters than h uses.
func (h *Hasher) NeedsRehash(encoded string) (bool, error) {
	ph, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}
	p := ph.params
	return p.Memory < h.params.Memory ||
		p.Passes < h.params.Passes ||
		p.Parallelism < h.params.Parallelism ||
		p.KeyLength != h.params.KeyLength, nil
}

type phc struct {
	params Params
	salt   []byte
	key    []byte
}

func encodePHC(p Params, salt, key []byte) string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		phcAlgorithm, argon2.Version, p.Memory, p.Passes, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

func decodePHC(encoded string) (phc, error) {
	if !strings.HasPrefix(encoded, "$") {
		return phc{}, ErrUnsupportedHash
	}
	fields := strings.Split(encoded, "$")
	if len(fields) != phcFieldsCount {
		return phc{}, ErrMalformedHash
	}
	if fields[1] != phcAlgorithm {
		return phc{}, ErrUnsupportedHash
	}
	if fields[2] != "v="+strconv.Itoa(argon2.Version) {
		return phc{}, ErrUnsupportedHash
	}

	p, err := decodeParams(fields[3])
	if err != nil {
		return phc{}, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(fields[4])
	if err != nil || len(salt) < int(minSaltBytes) {
		return phc{}, ErrMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(fields[5])
	if err != nil || len(key) < int(minKeyBytes) {
		return phc{}, ErrMalformedHash
	}
	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))

	return phc{params: p, salt: salt, key: key}, nil
}

func decodeParams(field string) (Params, error) {
	var (
		p    Params
		seen = map[string]bool{}
	)
	for _, kv := range strings.Split(field, ",") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || seen[name] {
			return Params{}, ErrMalformedHash
		}
		seen[name] = true

		switch name {
		case "m":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || uint32(v) < minMemoryKiB {
				return Params{}, ErrMalformedHash
			}
			p.Memory = uint32(v)
		case "t":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || uint32(v) < minPasses {
				return Params{}, ErrMalformedHash
			}
			p.Passes = uint32(v)
		case "p":
			v, err := strconv.ParseUint(value, 10, 8)
			if err != nil || uint8(v) < minLanes {
				return Params{}, ErrMalformedHash
			}
			p.Parallelism = uint8(v)
		default:
			return Params{}, ErrMalformedHash
		}
	}
	if len(seen) != 3 {
		return Params{}, ErrMalformedHash
	}
	return p, nil
}
