package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	authcore "github.com/saferelief/authcore"
	"github.com/saferelief/authcore/csrf"
)

// Options selects the optional collaborators for the router. Exactly one of
// Guard or DoubleSubmit should be set; with neither, CSRF protection is off
// (acceptable only for non-browser clients).
type Options struct {
	Logger       *slog.Logger
	Guard        *csrf.Guard
	DoubleSubmit *csrf.DoubleSubmit
}

// NewRouter builds the full route table. State-changing routes sit behind the
// chosen CSRF strategy; /auth/refresh is exempt because it authenticates via
// its own HttpOnly cookie, which cross-site scripts can neither read nor
// forge a header from.
func NewRouter(svc *authcore.Service, opts Options) *mux.Router {
	h := NewHandler(svc, opts.Logger)

	r := mux.NewRouter()
	r.Use(securityHeaders)

	switch {
	case opts.Guard != nil:
		r.Use(opts.Guard.Middleware)
		r.HandleFunc("/csrf-token", opts.Guard.TokenHandler).Methods(http.MethodGet)
	case opts.DoubleSubmit != nil:
		r.Use(opts.DoubleSubmit.Middleware)
	}

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	auth.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	auth.HandleFunc("/refresh", h.Refresh).Methods(http.MethodPost)
	auth.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)

	me := r.PathPrefix("/users/me").Subrouter()
	me.Use(h.Authenticate)
	me.HandleFunc("", h.Me).Methods(http.MethodGet)
	me.HandleFunc("/mfa", h.EnableMFA).Methods(http.MethodPost)
	me.HandleFunc("/mfa", h.DisableMFA).Methods(http.MethodDelete)
	me.HandleFunc("/password", h.ChangePassword).Methods(http.MethodPost)

	return r
}

// securityHeaders sets the response headers every route carries. TLS-level
// headers (HSTS and friends) are added by the outer middleware in the server
// binary.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr := w.Header()
		hdr.Set("X-Content-Type-Options", "nosniff")
		hdr.Set("X-Frame-Options", "DENY")
		hdr.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
