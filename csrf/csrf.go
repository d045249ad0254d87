// Package csrf defends state-changing requests against cross-site request
// forgery. Two interchangeable strategies are provided: a server-stored
// single-use token ([Guard]) and a double-submit cookie ([DoubleSubmit]).
// Deployments pick one.
package csrf

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HeaderName is the request header carrying the anti-forgery token.
const HeaderName = "X-CSRF-Token"

// FormField is the fallback form field for clients that cannot set headers.
const FormField = "csrf_token"

const tokenBytes = 32

// TokenStore persists issued tokens. Consume must be atomic per token: a
// token transitions unused to used exactly once, and any call after expiry or
// first use returns false.
type TokenStore interface {
	Put(ctx context.Context, token string, expiresAt time.Time) error
	Consume(ctx context.Context, token string, now time.Time) (bool, error)
	Sweep(ctx context.Context, now time.Time) error
}

// Guard implements the server-stored single-use strategy.
type Guard struct {
	store TokenStore
	ttl   time.Duration
	now   func() time.Time

	// exempt holds path prefixes skipped even on unsafe methods, such as the
	// token-refresh endpoint that authenticates via its own cookie.
	exempt []string
}

// NewGuard returns a Guard issuing tokens valid for ttl (default 15 minutes).
func NewGuard(store TokenStore, ttl time.Duration, exemptPrefixes ...string) *Guard {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Guard{
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		exempt: exemptPrefixes,
	}
}

// Generate creates a cryptographically random token and stores it unused.
func (g *Guard) Generate(ctx context.Context) (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}
	token := base64.URLEncoding.EncodeToString(raw)

	if err := g.store.Put(ctx, token, g.now().Add(g.ttl)); err != nil {
		return "", err
	}
	return token, nil
}

// Validate consumes the token. Missing, expired, unknown, or already-used
// tokens all fail; a first successful validation makes every later one fail.
func (g *Guard) Validate(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	ok, err := g.store.Consume(ctx, token, g.now())
	if err != nil {
		// Fail closed: an unreachable store must not waive the check.
		return false
	}
	return ok
}

// Middleware enforces the token on POST, PUT, PATCH, and DELETE. Safe methods
// and exempt path prefixes pass through.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		for _, prefix := range g.exempt {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		if !g.Validate(r.Context(), extractToken(r)) {
			http.Error(w, "Invalid or missing CSRF token", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// TokenHandler serves GET /csrf-token.
func (g *Guard) TokenHandler(w http.ResponseWriter, r *http.Request) {
	token, err := g.Generate(r.Context())
	if err != nil {
		http.Error(w, "Failed to generate CSRF token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"csrf_token": token})
}

// Run sweeps expired and consumed tokens every interval (default 10 minutes)
// until the context is cancelled.
func (g *Guard) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = 10 * time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = g.store.Sweep(ctx, g.now())
		case <-ctx.Done():
			return
		}
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func extractToken(r *http.Request) string {
	if token := r.Header.Get(HeaderName); token != "" {
		return token
	}
	if err := r.ParseForm(); err == nil {
		if token := r.FormValue(FormField); token != "" {
			return token
		}
	}
	return ""
}
