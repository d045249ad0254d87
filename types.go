package authcore

import (
	"context"
	"time"
)

// Principal is the authenticated identity a request acts as. It is created on
// registration and mutated on every login attempt, password change, and MFA
// change. This core never hard-deletes a principal; lifecycle beyond that is
// owned by the collaborator store.
type Principal struct {
	ID             string
	Username       string
	Email          string
	PasswordHash   string
	MFASecret      string
	MFAEnabled     bool
	FailedAttempts uint
	LockedUntil    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Locked reports whether the principal is locked out at the given instant.
// An elapsed LockedUntil counts as cleared.
func (p *Principal) Locked(now time.Time) bool {
	return p.LockedUntil != nil && now.Before(*p.LockedUntil)
}

// TokenPair carries one access token and one refresh token, signed with
// distinct secrets.
type TokenPair struct {
	Access  string
	Refresh string
}

// ClientInfo identifies the remote caller for rate limiting and auditing.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// Credentials is the login input.
type Credentials struct {
	Email    string
	Password string
	MFACode  string
}

// Registration is the account-creation input.
type Registration struct {
	Username string
	Email    string
	Password string
}

// LoginResult is returned by [Service.Login] on success.
type LoginResult struct {
	Principal *Principal
	Tokens    TokenPair

	// Method is "password_only" or "password_and_mfa".
	Method string
}

// RefreshResult is returned by [Service.Refresh]. Tokens is a new pair; the
// previous refresh token is superseded but not revoked.
type RefreshResult struct {
	Principal *Principal
	Tokens    TokenPair
}

// MFAProvisioning is returned when MFA is enabled for a principal.
type MFAProvisioning struct {
	Secret    string
	QRCodeURI string
}

// UserStore is the persistence collaborator for principals. Implementations
// must return ErrPrincipalNotFound for missing rows and ErrDuplicateEmail or
// ErrDuplicateUsername from Create when a uniqueness constraint is violated.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*Principal, error)
	GetByUsername(ctx context.Context, username string) (*Principal, error)
	GetByID(ctx context.Context, id string) (*Principal, error)
	Create(ctx context.Context, p *Principal) error
	UpdateLockState(ctx context.Context, id string, failedAttempts uint, lockedUntil *time.Time) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateMFA(ctx context.Context, id, secret string, enabled bool) error
}
