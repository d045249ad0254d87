package csrf

import (
	"context"
	"sync"
	"time"
)

type record struct {
	expiresAt time.Time
	used      bool
}

// MemoryStore is the in-process token table. Consume runs its check-then-mark
// sequence under one exclusive lock, so two concurrent requests can never
// both spend the same token.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]*record
}

// NewMemoryStore returns an empty token table.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]*record)}
}

// Put stores the token as unused.
func (s *MemoryStore) Put(_ context.Context, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = &record{expiresAt: expiresAt}
	return nil
}

// Consume validates and marks the token used. Expired tokens are evicted on
// sight.
func (s *MemoryStore) Consume(_ context.Context, token string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tokens[token]
	if !ok {
		return false, nil
	}
	if now.After(rec.expiresAt) {
		delete(s.tokens, token)
		return false, nil
	}
	if rec.used {
		return false, nil
	}

	rec.used = true
	return true, nil
}

// Sweep removes expired and consumed tokens in a single pass under the same
// lock request handlers take.
func (s *MemoryStore) Sweep(_ context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, rec := range s.tokens {
		if now.After(rec.expiresAt) || rec.used {
			delete(s.tokens, token)
		}
	}
	return nil
}

// size is a test hook.
func (s *MemoryStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
