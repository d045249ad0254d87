// Package httpapi exposes the authentication core over HTTP. Tokens travel in
// HttpOnly cookies rather than response bodies so that browser scripts never
// see them.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	authcore "github.com/saferelief/authcore"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"

	maxBodyBytes = 1 << 20
)

// Handler holds the request handlers for the auth endpoints.
type Handler struct {
	svc *authcore.Service
	log *slog.Logger
}

// NewHandler wires the service into HTTP handlers.
func NewHandler(svc *authcore.Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func clientInfo(r *http.Request) authcore.ClientInfo {
	return authcore.ClientInfo{
		IP:        ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

type principalView struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	MFAEnabled bool   `json:"mfaEnabled"`
}

func viewOf(p *authcore.Principal) principalView {
	return principalView{ID: p.ID, Username: p.Username, Email: p.Email, MFAEnabled: p.MFAEnabled}
}

func (h *Handler) setAuthCookies(w http.ResponseWriter, pair authcore.TokenPair) {
	setTokenCookie(w, accessCookie, pair.Access, h.svc.AccessTTL())
	setTokenCookie(w, refreshCookie, pair.Refresh, h.svc.RefreshTTL())
}

func setTokenCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearTokenCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.svc.Register(r.Context(), authcore.Registration{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}, clientInfo(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Registration successful",
		"user":    viewOf(p),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	MFACode  string `json:"mfaCode"`
}

// Login handles POST /auth/login. On success both token cookies are set and
// only the public principal fields go in the body.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.Login(r.Context(), authcore.Credentials{
		Email:    req.Email,
		Password: req.Password,
		MFACode:  req.MFACode,
	}, clientInfo(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.setAuthCookies(w, result.Tokens)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    viewOf(result.Principal),
	})
}

// Refresh handles POST /auth/refresh. The refresh token is read from its
// cookie, never from the body. The rotated refresh token travels back as a
// cookie only; the new access token is also returned in the body for
// non-cookie clients.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookie)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	result, err := h.svc.Refresh(r.Context(), cookie.Value, clientInfo(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.setAuthCookies(w, result.Tokens)
	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken": result.Tokens.Access,
		"user":        viewOf(result.Principal),
	})
}

// Logout handles POST /auth/logout. Always succeeds; both cookies are
// cleared whether or not the access token was still valid.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	accessToken := ""
	if cookie, err := r.Cookie(accessCookie); err == nil {
		accessToken = cookie.Value
	}
	h.svc.Logout(r.Context(), accessToken, clientInfo(r))

	clearTokenCookie(w, accessCookie)
	clearTokenCookie(w, refreshCookie)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Me handles GET /users/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principalID, ok := PrincipalID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	p, err := h.svc.Profile(r.Context(), principalID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": viewOf(p)})
}

// EnableMFA handles POST /users/me/mfa. The response carries the otpauth URI
// exactly once; it is not retrievable afterwards.
func (h *Handler) EnableMFA(w http.ResponseWriter, r *http.Request) {
	principalID, ok := PrincipalID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	prov, err := h.svc.EnableMFA(r.Context(), principalID, clientInfo(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "MFA enabled",
		"secret":    prov.Secret,
		"qrCodeUri": prov.QRCodeURI,
	})
}

type disableMFARequest struct {
	Password string `json:"password"`
	MFACode  string `json:"mfaCode"`
}

// DisableMFA handles DELETE /users/me/mfa.
func (h *Handler) DisableMFA(w http.ResponseWriter, r *http.Request) {
	principalID, ok := PrincipalID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req disableMFARequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.svc.DisableMFA(r.Context(), principalID, req.Password, req.MFACode, clientInfo(r)); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "MFA disabled"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	MFACode         string `json:"mfaCode"`
}

// ChangePassword handles POST /users/me/password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principalID, ok := PrincipalID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.svc.ChangePassword(r.Context(), principalID, authcore.PasswordChange{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		MFACode:         req.MFACode,
	}, clientInfo(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed"})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
