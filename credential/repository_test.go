package credential

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func repositories(t *testing.T) map[string]Repository {
	_, rdb := newTestRedis(t)
	return map[string]Repository{
		"memory": NewMemoryRepository(),
		"redis":  NewRedisRepository(rdb),
	}
}

func TestRepositoryContract(t *testing.T) {
	ctx := context.Background()
	created := time.Unix(1700000000, 0).UTC()

	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			rec := NewRecord("  Alice ", "$argon2id$hash", "user", created)
			if err := repo.Create(ctx, rec); err != nil {
				t.Fatalf("create: %v", err)
			}

			byName, err := repo.GetByUsername(ctx, "ALICE")
			if err != nil {
				t.Fatalf("get by username: %v", err)
			}
			if byName.Subject != rec.Subject || byName.Username != "alice" || byName.PasswordHash != rec.PasswordHash ||
				byName.Role != rec.Role || !byName.CreatedAt.Equal(created) {
				t.Fatalf("unexpected record: %+v want %+v", byName, rec)
			}

			bySubject, err := repo.GetBySubject(ctx, rec.Subject)
			if err != nil {
				t.Fatalf("get by subject: %v", err)
			}
			if bySubject.Username != "alice" || bySubject.Role != "user" {
				t.Fatalf("unexpected record: %+v", bySubject)
			}

			dup := NewRecord("alice", "$argon2id$other", "admin", created)
			if err := repo.Create(ctx, dup); !errors.Is(err, ErrUsernameTaken) {
				t.Fatalf("expected ErrUsernameTaken, got %v", err)
			}
			still, _ := repo.GetByUsername(ctx, "alice")
			if still.Role != "user" {
				t.Fatalf("duplicate create changed stored role to %q", still.Role)
			}

			if _, err := repo.GetByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if _, err := repo.GetBySubject(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			bad := rec
			bad.Role = ""
			bad.Username = "bob"
			if err := repo.Create(ctx, bad); !errors.Is(err, ErrInvalidRecord) {
				t.Fatalf("expected ErrInvalidRecord, got %v", err)
			}
		})
	}
}

func TestRepositoryConcurrentCreateSameUsername(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				success int
			)
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := repo.Create(ctx, NewRecord("race", "$argon2id$h", "user", time.Now())); err == nil {
						mu.Lock()
						success++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			if success != 1 {
				t.Fatalf("expected exactly one successful create, got %d", success)
			}
		})
	}
}

func TestRedisRepositoryUnavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	repo := NewRedisRepository(rdb)
	mr.Close()

	err := repo.Create(context.Background(), NewRecord("alice", "$argon2id$h", "user", time.Now()))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := repo.GetByUsername(context.Background(), "alice"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestMemoryRepositoryHonoursContext(t *testing.T) {
	repo := NewMemoryRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := repo.Create(ctx, NewRecord("alice", "$argon2id$h", "user", time.Now())); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if repo.Len() != 0 {
		t.Fatal("expected nothing stored")
	}
}
