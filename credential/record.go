package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/tokengate/token"
)

var (
	ErrNotFound      = errors.New("credential: account not found")
	ErrUsernameTaken = errors.New("credential: username already registered")
	ErrInvalidRecord = errors.New("credential: invalid record")
	ErrUnavailable   = errors.New("credential: backend unavailable")
)

// Record is a stored account.
type Record struct {
	Subject      string
	Username     string
	PasswordHash string
	Role         token.Role
	CreatedAt    time.Time
}

// NewRecord builds a Record with a fresh random subject. role is chosen by the caller.
func NewRecord(username, passwordHash string, role token.Role, now time.Time) Record {
	return Record{
		Subject:      uuid.NewString(),
		Username:     NormalizeUsername(username),
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now.UTC(),
	}
}

// Validate checks that every field a login needs is present. Errors wrap ErrInvalidRecord.
func (r Record) Validate() error {
	switch {
	case r.Subject == "":
		return fmt.Errorf("%w: empty subject", ErrInvalidRecord)
	case r.Username == "":
		return fmt.Errorf("%w: empty username", ErrInvalidRecord)
	case r.PasswordHash == "":
		return fmt.Errorf("%w: empty password hash", ErrInvalidRecord)
	case r.Role == "":
		return fmt.Errorf("%w: empty role", ErrInvalidRecord)
	}
	return nil
}

// Repository persists accounts. Implementations must be safe for concurrent use.
type Repository interface {
	// Create stores r. It returns ErrUsernameTaken if the username exists.
	Create(ctx context.Context, r Record) error
	// GetByUsername returns ErrNotFound for unknown usernames.
	GetByUsername(ctx context.Context, username string) (Record, error)
	// GetBySubject returns ErrNotFound for unknown subjects.
	GetBySubject(ctx context.Context, subject string) (Record, error)
}

// NormalizeUsername trims and lower-cases a username for storage and lookup.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
