package authcore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/saferelief/authcore/jwt"
	"github.com/saferelief/authcore/password"
	"github.com/saferelief/authcore/ratelimit"
	"github.com/saferelief/authcore/totp"
)

// Service is the top-level authentication state machine. Construct it through
// [Builder]; all methods are safe for concurrent use.
type Service struct {
	config  Config
	users   UserStore
	limiter ratelimit.Limiter
	codec   *password.Codec
	tokens  *jwt.Manager
	totp    *totp.Provider
	audit   *auditLogger
	log     *slog.Logger
	now     func() time.Time
}

// Close drains and stops the audit dispatcher. Call at shutdown.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.audit.Close()
}

// AuditDropped reports how many audit events were discarded under load.
func (s *Service) AuditDropped() uint64 {
	if s == nil || s.audit == nil {
		return 0
	}
	return s.audit.dispatch.Dropped()
}

// Tokens exposes the token manager for request-level verification in the
// HTTP layer.
func (s *Service) Tokens() *jwt.Manager {
	return s.tokens
}

// AccessTTL returns the access-token lifetime for cookie max-age.
func (s *Service) AccessTTL() time.Duration { return s.config.Token.AccessTTL }

// RefreshTTL returns the refresh-token lifetime for cookie max-age.
func (s *Service) RefreshTTL() time.Duration { return s.config.Token.RefreshTTL }

// Profile loads a principal by id.
func (s *Service) Profile(ctx context.Context, principalID string) (*Principal, error) {
	if s == nil {
		return nil, ErrServiceNotReady
	}
	return s.users.GetByID(ctx, principalID)
}

// issuePair mints a fresh access+refresh pair for the principal.
func (s *Service) issuePair(principalID string) (TokenPair, error) {
	access, err := s.tokens.IssueAccess(principalID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefresh(principalID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// event is shorthand for an audit event bound to the calling client.
func event(t EventType, client ClientInfo, details map[string]string) AuditEvent {
	return AuditEvent{
		EventType: t,
		IPAddress: client.IP,
		UserAgent: client.UserAgent,
		Details:   details,
	}
}
