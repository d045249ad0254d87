// Package memory holds in-process implementations of the authcore
// persistence collaborators, used by tests and by the demo server when no
// database is configured.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	authcore "github.com/saferelief/authcore"
)

// UserStore is a mutex-guarded principal table keyed by id.
type UserStore struct {
	mu         sync.RWMutex
	byID       map[string]*authcore.Principal
	byEmail    map[string]string
	byUsername map[string]string
}

// NewUserStore returns an empty store.
func NewUserStore() *UserStore {
	return &UserStore{
		byID:       make(map[string]*authcore.Principal),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
	}
}

func clone(p *authcore.Principal) *authcore.Principal {
	cp := *p
	if p.LockedUntil != nil {
		t := *p.LockedUntil
		cp.LockedUntil = &t
	}
	return &cp
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*authcore.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, authcore.ErrPrincipalNotFound
	}
	return clone(s.byID[id]), nil
}

func (s *UserStore) GetByUsername(_ context.Context, username string) (*authcore.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return nil, authcore.ErrPrincipalNotFound
	}
	return clone(s.byID[id]), nil
}

func (s *UserStore) GetByID(_ context.Context, id string) (*authcore.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, authcore.ErrPrincipalNotFound
	}
	return clone(p), nil
}

func (s *UserStore) Create(_ context.Context, p *authcore.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(p.Email)
	username := strings.ToLower(p.Username)
	if _, exists := s.byEmail[email]; exists {
		return authcore.ErrDuplicateEmail
	}
	if _, exists := s.byUsername[username]; exists {
		return authcore.ErrDuplicateUsername
	}

	s.byID[p.ID] = clone(p)
	s.byEmail[email] = p.ID
	s.byUsername[username] = p.ID
	return nil
}

func (s *UserStore) UpdateLockState(_ context.Context, id string, failedAttempts uint, lockedUntil *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return authcore.ErrPrincipalNotFound
	}
	p.FailedAttempts = failedAttempts
	if lockedUntil != nil {
		t := *lockedUntil
		p.LockedUntil = &t
	} else {
		p.LockedUntil = nil
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (s *UserStore) UpdatePasswordHash(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return authcore.ErrPrincipalNotFound
	}
	p.PasswordHash = hash
	p.UpdatedAt = time.Now()
	return nil
}

func (s *UserStore) UpdateMFA(_ context.Context, id, secret string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[id]
	if !ok {
		return authcore.ErrPrincipalNotFound
	}
	p.MFASecret = secret
	p.MFAEnabled = enabled
	p.UpdatedAt = time.Now()
	return nil
}

// AuditStore appends events to a slice. Old events are trimmed once the
// retention horizon is exceeded so long-running processes stay bounded.
type AuditStore struct {
	mu        sync.Mutex
	events    []authcore.AuditEvent
	retention time.Duration
}

// NewAuditStore keeps events for the given retention window (default 24h).
func NewAuditStore(retention time.Duration) *AuditStore {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &AuditStore{retention: retention}
}

func (s *AuditStore) Append(_ context.Context, event authcore.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	horizon := time.Now().Add(-s.retention)
	trimmed := s.events[:0]
	for _, e := range s.events {
		if e.Timestamp.After(horizon) {
			trimmed = append(trimmed, e)
		}
	}
	s.events = append(trimmed, event)
	return nil
}

func (s *AuditStore) CountByIP(_ context.Context, ip string, types []authcore.EventType, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, e := range s.events {
		if e.IPAddress != ip || e.Timestamp.Before(since) {
			continue
		}
		for _, t := range types {
			if e.EventType == t {
				count++
				break
			}
		}
	}
	return count, nil
}

// Events returns a snapshot, newest last. Test helper.
func (s *AuditStore) Events() []authcore.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]authcore.AuditEvent, len(s.events))
	copy(out, s.events)
	return out
}
