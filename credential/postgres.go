package credential

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/MrEthical07/tokengate/token"
)

// Schema creates the accounts table used by PostgresRepository.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	subject       TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
)`

const pqUniqueViolation = "23505"

// PostgresRepository stores accounts in the accounts table.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema applies Schema.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("credential: apply schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Create(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	query := `
	INSERT INTO accounts (subject, username, password_hash, role, created_at)
	VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.Subject,
		NormalizeUsername(rec.Username),
		rec.PasswordHash,
		string(rec.Role),
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrUsernameTaken
		}
		return fmt.Errorf("%w: insert account: %w", ErrUnavailable, err)
	}
	return nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (Record, error) {
	query := `SELECT subject, username, password_hash, role, created_at FROM accounts WHERE username = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, NormalizeUsername(username)))
}

func (r *PostgresRepository) GetBySubject(ctx context.Context, subject string) (Record, error) {
	query := `SELECT subject, username, password_hash, role, created_at FROM accounts WHERE subject = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, subject))
}

func (r *PostgresRepository) scanOne(row *sql.Row) (Record, error) {
	var (
		rec  Record
		role string
	)
	err := row.Scan(&rec.Subject, &rec.Username, &rec.PasswordHash, &role, &rec.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Record{}, ErrNotFound
	case err != nil:
		return Record{}, fmt.Errorf("%w: select account: %w", ErrUnavailable, err)
	}
	rec.Role = token.Role(role)
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}
