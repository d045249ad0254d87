package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	authcore "github.com/saferelief/authcore"
	"github.com/saferelief/authcore/validate"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError converts a core error to the wire taxonomy. Validation
// failures carry field detail; authentication failures stay generic, with the
// real reason living only in the audit trail.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var verrs validate.Errors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": verrs})
		return
	}

	switch {
	case errors.Is(err, authcore.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, authcore.ErrMFARequired):
		// Distinct from invalid credentials on purpose: the caller has
		// already proven password knowledge.
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "MFA required"})
	case errors.Is(err, authcore.ErrMFAInvalid):
		writeError(w, http.StatusUnauthorized, "Invalid MFA code")
	case errors.Is(err, authcore.ErrAccountLocked):
		writeError(w, http.StatusForbidden, "Account is temporarily locked")
	case errors.Is(err, authcore.ErrSuspiciousActivity):
		writeError(w, http.StatusForbidden, "Account temporarily restricted due to suspicious activity")
	case errors.Is(err, authcore.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "Too many requests")
	case errors.Is(err, authcore.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "Email already registered")
	case errors.Is(err, authcore.ErrDuplicateUsername):
		writeError(w, http.StatusConflict, "Username already taken")
	case errors.Is(err, authcore.ErrRefreshInvalid):
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
	case errors.Is(err, authcore.ErrPasswordReuse):
		writeError(w, http.StatusBadRequest, "New password must be different from current password")
	case errors.Is(err, authcore.ErrCurrentPasswordInvalid):
		writeError(w, http.StatusUnauthorized, "Current password is incorrect")
	case errors.Is(err, authcore.ErrMFANotEnabled):
		writeError(w, http.StatusBadRequest, "MFA is not enabled")
	case errors.Is(err, authcore.ErrPrincipalNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	default:
		h.log.Error("internal error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
