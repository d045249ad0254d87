package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"time"
)

// CookieName is the double-submit cookie. It is intentionally not HttpOnly:
// client script must be able to read it and echo it into the request header.
const CookieName = "csrf_token"

// DoubleSubmit implements the stateless double-submit cookie strategy: safe
// methods receive a random token as a cookie, unsafe methods must present the
// same value in both the cookie and the X-CSRF-Token header.
type DoubleSubmit struct {
	cookieTTL time.Duration
}

// NewDoubleSubmit returns the middleware provider. ttl defaults to 30
// minutes.
func NewDoubleSubmit(ttl time.Duration) *DoubleSubmit {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &DoubleSubmit{cookieTTL: ttl}
}

// Middleware sets the cookie on safe methods and enforces the cookie/header
// match on unsafe ones.
func (d *DoubleSubmit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) {
			d.setCookie(w, r)
			next.ServeHTTP(w, r)
			return
		}

		if !d.validate(r) {
			http.Error(w, "CSRF token validation failed", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (d *DoubleSubmit) setCookie(w http.ResponseWriter, r *http.Request) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    base64.URLEncoding.EncodeToString(raw),
		HttpOnly: false,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   int(d.cookieTTL.Seconds()),
	})
}

func (d *DoubleSubmit) validate(r *http.Request) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	headerToken := r.Header.Get(HeaderName)
	if headerToken == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(headerToken)) == 1
}
