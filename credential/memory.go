package credential

import (
	"context"
	"sync"
)

// MemoryRepository keeps accounts in process memory.
type MemoryRepository struct {
	mu         sync.RWMutex
	bySubject  map[string]Record
	byUsername map[string]string
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		bySubject:  make(map[string]Record),
		byUsername: make(map[string]string),
	}
}

func (m *MemoryRepository) Create(ctx context.Context, r Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	name := NormalizeUsername(r.Username)
	if _, ok := m.byUsername[name]; ok {
		return ErrUsernameTaken
	}
	r.Username = name
	m.bySubject[r.Subject] = r
	m.byUsername[name] = r.Subject
	return nil
}

func (m *MemoryRepository) GetByUsername(ctx context.Context, username string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	subject, ok := m.byUsername[NormalizeUsername(username)]
	if !ok {
		return Record{}, ErrNotFound
	}
	return m.bySubject[subject], nil
}

func (m *MemoryRepository) GetBySubject(ctx context.Context, subject string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.bySubject[subject]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

// Len returns the number of stored accounts.
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bySubject)
}
