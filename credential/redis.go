package credential

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/tokengate/token"
)

const (
	redisAccountPrefix  = "tg:acct:"
	redisUsernamePrefix = "tg:user:"
)

// RedisRepository stores each account as a hash under tg:acct:<subject> and claims
// usernames with SETNX on tg:user:<username>.
type RedisRepository struct {
	client redis.UniversalClient
}

// NewRedisRepository wraps client.
func NewRedisRepository(client redis.UniversalClient) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) Create(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	rec.Username = NormalizeUsername(rec.Username)

	claimed, err := r.client.SetNX(ctx, redisUsernamePrefix+rec.Username, rec.Subject, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if !claimed {
		return ErrUsernameTaken
	}

	err = r.client.HSet(ctx, redisAccountPrefix+rec.Subject,
		"username", rec.Username,
		"password_hash", rec.PasswordHash,
		"role", string(rec.Role),
		"created_at", strconv.FormatInt(rec.CreatedAt.UTC().UnixNano(), 10),
	).Err()
	if err != nil {
		// release the username so a retry can succeed
		_ = r.client.Del(context.WithoutCancel(ctx), redisUsernamePrefix+rec.Username).Err()
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (r *RedisRepository) GetByUsername(ctx context.Context, username string) (Record, error) {
	subject, err := r.client.Get(ctx, redisUsernamePrefix+NormalizeUsername(username)).Result()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return r.GetBySubject(ctx, subject)
}

func (r *RedisRepository) GetBySubject(ctx context.Context, subject string) (Record, error) {
	fields, err := r.client.HGetAll(ctx, redisAccountPrefix+subject).Result()
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if len(fields) == 0 {
		return Record{}, ErrNotFound
	}

	nanos, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: created_at: %v", ErrInvalidRecord, err)
	}
	rec := Record{
		Subject:      subject,
		Username:     fields["username"],
		PasswordHash: fields["password_hash"],
		Role:         token.Role(fields["role"]),
		CreatedAt:    time.Unix(0, nanos).UTC(),
	}
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}
