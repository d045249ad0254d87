package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type contextKey int

const principalKey contextKey = iota

// PrincipalID returns the authenticated principal id set by [Handler.Authenticate].
func PrincipalID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(principalKey).(string)
	return id, ok
}

// withPrincipalID is used by tests to simulate an authenticated request.
func withPrincipalID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, principalKey, id)
}

// Authenticate verifies the access-token cookie and stashes the subject in
// the request context. Requests without a valid token are rejected before the
// handler runs.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(accessCookie)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		claims, err := h.svc.Tokens().VerifyAccess(cookie.Value)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(withPrincipalID(r.Context(), claims.Subject)))
	})
}

// ClientIP extracts the originating client address. The leftmost
// X-Forwarded-For entry wins, then X-Real-IP, then the connection peer.
// Trust the proxy chain only when the listener actually sits behind one.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
