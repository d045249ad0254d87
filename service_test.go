package authcore

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"
	"github.com/saferelief/authcore/password"
)

var (
	testAccessSecret  = []byte("test-access-secret-0123456789abcdef-0123")
	testRefreshSecret = []byte("test-refresh-secret-0123456789abcdef-012")
)

var testClient = ClientInfo{IP: "203.0.113.9", UserAgent: "test-agent"}

// fakeUsers is an in-test UserStore with injectable failures.
type fakeUsers struct {
	mu   sync.Mutex
	byID map[string]*Principal

	createErr     error
	updateLockErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[string]*Principal)}
}

func clonePrincipal(p *Principal) *Principal {
	cp := *p
	if p.LockedUntil != nil {
		t := *p.LockedUntil
		cp.LockedUntil = &t
	}
	return &cp
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.byID {
		if strings.EqualFold(p.Email, email) {
			return clonePrincipal(p), nil
		}
	}
	return nil, ErrPrincipalNotFound
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.byID {
		if strings.EqualFold(p.Username, username) {
			return clonePrincipal(p), nil
		}
	}
	return nil, ErrPrincipalNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, ErrPrincipalNotFound
	}
	return clonePrincipal(p), nil
}

func (f *fakeUsers) Create(_ context.Context, p *Principal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.byID {
		if strings.EqualFold(existing.Email, p.Email) {
			return ErrDuplicateEmail
		}
		if strings.EqualFold(existing.Username, p.Username) {
			return ErrDuplicateUsername
		}
	}
	f.byID[p.ID] = clonePrincipal(p)
	return nil
}

func (f *fakeUsers) UpdateLockState(_ context.Context, id string, failedAttempts uint, lockedUntil *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateLockErr != nil {
		return f.updateLockErr
	}
	p, ok := f.byID[id]
	if !ok {
		return ErrPrincipalNotFound
	}
	p.FailedAttempts = failedAttempts
	if lockedUntil != nil {
		t := *lockedUntil
		p.LockedUntil = &t
	} else {
		p.LockedUntil = nil
	}
	return nil
}

func (f *fakeUsers) UpdatePasswordHash(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return ErrPrincipalNotFound
	}
	p.PasswordHash = hash
	return nil
}

func (f *fakeUsers) UpdateMFA(_ context.Context, id, secret string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return ErrPrincipalNotFound
	}
	p.MFASecret = secret
	p.MFAEnabled = enabled
	return nil
}

func (f *fakeUsers) get(t *testing.T, id string) *Principal {
	t.Helper()
	p, err := f.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("principal %s: %v", id, err)
	}
	return p
}

// recordingAudit captures events and lets tests dictate the suspicion count.
type recordingAudit struct {
	mu     sync.Mutex
	events []AuditEvent

	countOverride *int
	countErr      error
}

func (a *recordingAudit) Append(_ context.Context, event AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

func (a *recordingAudit) CountByIP(_ context.Context, ip string, types []EventType, since time.Time) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.countErr != nil {
		return 0, a.countErr
	}
	if a.countOverride != nil {
		return *a.countOverride, nil
	}
	count := 0
	for _, e := range a.events {
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

// waitFor blocks until an event of the given type has been persisted by the
// async dispatcher, then returns it.
func (a *recordingAudit) waitFor(t *testing.T, eventType EventType) AuditEvent {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		a.mu.Lock()
		for _, e := range a.events {
			if e.EventType == eventType {
				a.mu.Unlock()
				return e
			}
		}
		a.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no %s event recorded", eventType)
	return AuditEvent{}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	svc   *Service
	users *fakeUsers
	audit *recordingAudit
	clock *testClock
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	cfg := Config{
		Token: TokenConfig{
			AccessSecret:  testAccessSecret,
			RefreshSecret: testRefreshSecret,
		},
		Password: PasswordConfig{Cost: bcrypt.MinCost},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	users := newFakeUsers()
	audit := &recordingAudit{}
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	svc, err := New().
		WithConfig(cfg).
		WithUserStore(users).
		WithAuditStore(audit).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	svc.now = clock.Now
	t.Cleanup(svc.Close)

	return &testEnv{svc: svc, users: users, audit: audit, clock: clock}
}

// seed creates a principal directly in the store, bypassing Register.
func (e *testEnv) seed(t *testing.T, username, email, plaintext string) *Principal {
	t.Helper()

	codec, err := password.NewCodec(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	hash, err := codec.Hash(plaintext)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	now := e.clock.Now()
	p := &Principal{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.users.Create(context.Background(), p); err != nil {
		t.Fatalf("seed principal: %v", err)
	}
	return p
}
