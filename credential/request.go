package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/MrEthical07/tokengate/password"
)

// MaxBodyBytes caps a registration or login body.
const MaxBodyBytes = 64 << 10

const (
	minUsernameLen = 3
	maxUsernameLen = 64
)

var (
	ErrMalformedRequest = errors.New("credential: malformed request body")
	ErrBodyTooLarge     = errors.New("credential: request body too large")
	ErrInvalidUsername  = errors.New("credential: username must be 3-64 characters of a-z, 0-9, '.', '_' or '-'")
	ErrInvalidPassword  = errors.New("credential: password does not meet length policy")
)

// Registration is the allow-listed content of a sign-up request.
type Registration struct {
	Username string
	Password string
}

// Login is the allow-listed content of a sign-in request.
type Login struct {
	Username string
	Password string
}

// wireCredentials is the only shape request bodies are decoded into. Fields such as
// role or is_admin have nowhere to land and are dropped by the decoder.
type wireCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// DecodeRegistration reads a JSON body and keeps only username and password. The
// username must satisfy the naming policy and the password the length policy.
func DecodeRegistration(r io.Reader) (Registration, error) {
	w, err := decodeCredentials(r)
	if err != nil {
		return Registration{}, err
	}

	reg := Registration{Username: NormalizeUsername(w.Username), Password: w.Password}
	if err := reg.Validate(); err != nil {
		return Registration{}, err
	}
	return reg, nil
}

// Validate applies the username naming policy and the password length policy.
// Username is expected to be normalized already.
func (r Registration) Validate() error {
	if !validUsername(r.Username) {
		return ErrInvalidUsername
	}
	if err := password.CheckLength(r.Password); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPassword, err)
	}
	return nil
}

// DecodeLogin reads a JSON body and keeps only username and password. No policy is
// applied beyond non-emptiness so that login failures stay indistinguishable.
func DecodeLogin(r io.Reader) (Login, error) {
	w, err := decodeCredentials(r)
	if err != nil {
		return Login{}, err
	}
	if w.Username == "" || w.Password == "" {
		return Login{}, ErrMalformedRequest
	}
	return Login{Username: NormalizeUsername(w.Username), Password: w.Password}, nil
}

func decodeCredentials(r io.Reader) (wireCredentials, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxBodyBytes+1))
	if err != nil {
		return wireCredentials{}, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}
	if len(body) > MaxBodyBytes {
		return wireCredentials{}, ErrBodyTooLarge
	}

	var w wireCredentials
	if err := json.Unmarshal(body, &w); err != nil {
		return wireCredentials{}, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}
	return w, nil
}

func validUsername(name string) bool {
	if len(name) < minUsernameLen || len(name) > maxUsernameLen {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '.', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}
