package csrf

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestGuard(exempt ...string) (*Guard, *MemoryStore, *fakeClock) {
	store := NewMemoryStore()
	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	g := NewGuard(store, 15*time.Minute, exempt...)
	g.now = func() time.Time { return clk.now }
	return g, store, clk
}

func TestGuardTokenIsSingleUse(t *testing.T) {
	g, _, _ := newTestGuard()
	ctx := context.Background()

	token, err := g.Generate(ctx)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	if !g.Validate(ctx, token) {
		t.Fatal("fresh token rejected")
	}
	if g.Validate(ctx, token) {
		t.Error("token validated twice")
	}
}

func TestGuardTokenExpires(t *testing.T) {
	g, _, clk := newTestGuard()
	ctx := context.Background()

	token, _ := g.Generate(ctx)
	clk.advance(15*time.Minute + time.Second)
	if g.Validate(ctx, token) {
		t.Error("expired token accepted")
	}
}

func TestGuardRejectsUnknownAndEmpty(t *testing.T) {
	g, _, _ := newTestGuard()
	ctx := context.Background()

	if g.Validate(ctx, "") {
		t.Error("empty token accepted")
	}
	if g.Validate(ctx, "never-issued") {
		t.Error("unknown token accepted")
	}
}

type failingStore struct{}

func (failingStore) Put(context.Context, string, time.Time) error { return errors.New("down") }
func (failingStore) Consume(context.Context, string, time.Time) (bool, error) {
	return false, errors.New("down")
}
func (failingStore) Sweep(context.Context, time.Time) error { return errors.New("down") }

func TestGuardFailsClosedOnStoreError(t *testing.T) {
	g := NewGuard(failingStore{}, time.Minute)
	if g.Validate(context.Background(), "anything") {
		t.Error("store failure waived the check")
	}
	if _, err := g.Generate(context.Background()); err == nil {
		t.Error("Generate succeeded against a failing store")
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuardMiddleware(t *testing.T) {
	g, _, _ := newTestGuard("/auth/refresh")
	handler := g.Middleware(okHandler())

	t.Run("safe method passes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET status = %d", rec.Code)
		}
	})

	t.Run("exempt prefix passes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/refresh", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("exempt POST status = %d", rec.Code)
		}
	})

	t.Run("unsafe without token rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("unsafe with valid header passes once", func(t *testing.T) {
		token, err := g.Generate(context.Background())
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}

		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.Header.Set(HeaderName, token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		// Replay with the consumed token.
		req = httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.Header.Set(HeaderName, token)
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("replayed token status = %d, want 403", rec.Code)
		}
	})
}

func TestTokenHandler(t *testing.T) {
	g, store, _ := newTestGuard()

	rec := httptest.NewRecorder()
	g.TokenHandler(rec, httptest.NewRequest(http.MethodGet, "/csrf-token", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["csrf_token"] == "" {
		t.Fatal("response missing csrf_token")
	}
	if store.size() != 1 {
		t.Errorf("store size = %d, want 1", store.size())
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	g, store, clk := newTestGuard()
	ctx := context.Background()

	_, _ = g.Generate(ctx) // left to expire
	used, _ := g.Generate(ctx)
	if !g.Validate(ctx, used) {
		t.Fatal("token rejected")
	}
	clk.advance(10 * time.Minute)
	fresh, _ := g.Generate(ctx)

	clk.advance(6 * time.Minute) // first token now past its 15m expiry
	if err := store.Sweep(ctx, clk.now); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if store.size() != 1 {
		t.Fatalf("store size = %d, want only the fresh token", store.size())
	}
	if !g.Validate(ctx, fresh) {
		t.Error("fresh token was swept")
	}
}
