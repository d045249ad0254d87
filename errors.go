package authcore

import "errors"

var (
	// ErrInvalidCredentials is returned for both unknown-email and
	// password-mismatch failures so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while a lockout is in effect, before any
	// password check runs.
	ErrAccountLocked = errors.New("account is temporarily locked")
	// ErrMFARequired is returned when the password matched but no MFA code
	// was supplied. Deliberately distinct from ErrInvalidCredentials.
	ErrMFARequired = errors.New("MFA required")
	// ErrMFAInvalid is returned when the supplied TOTP code does not verify.
	ErrMFAInvalid = errors.New("invalid MFA code")
	// ErrMFANotEnabled is returned when disabling MFA on a principal that has
	// none.
	ErrMFANotEnabled = errors.New("MFA not enabled")
	// ErrRateLimited is returned when the per-IP fixed-window budget is spent.
	ErrRateLimited = errors.New("too many requests")
	// ErrSuspiciousActivity is returned by the coarse audit-trail gate.
	ErrSuspiciousActivity = errors.New("temporarily restricted due to suspicious activity")
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateUsername is returned when the username is already taken.
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrPrincipalNotFound is the store-level missing-row sentinel.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrRefreshInvalid is returned for any unusable refresh token, including
	// tokens whose principal no longer exists or is locked.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrPasswordReuse is returned when the new password equals the current.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrCurrentPasswordInvalid is returned on a failed re-verification during
	// password change or MFA disable.
	ErrCurrentPasswordInvalid = errors.New("current password is incorrect")
	// ErrServiceNotReady is returned from methods on a nil or unbuilt Service.
	ErrServiceNotReady = errors.New("service not initialized")
)
