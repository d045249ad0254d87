package authcore

import (
	"context"
	"errors"
	"fmt"
)

// Refresh verifies the refresh token, re-loads the principal, and issues a
// new access+refresh pair. The old refresh token is superseded but stays
// verifiable until its natural expiry; there is no server-side revocation
// list, so the compromise window of a stolen token is bounded only by its
// remaining TTL.
func (s *Service) Refresh(ctx context.Context, refreshToken string, client ClientInfo) (*RefreshResult, error) {
	if s == nil {
		return nil, ErrServiceNotReady
	}

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, ErrRefreshInvalid
	}

	p, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, fmt.Errorf("principal lookup: %w", err)
	}

	if p.Locked(s.now()) {
		return nil, ErrRefreshInvalid
	}

	pair, err := s.issuePair(p.ID)
	if err != nil {
		return nil, err
	}

	ev := event(EventTokenRefreshed, client, nil)
	ev.PrincipalID = p.ID
	ev.Email = p.Email
	s.audit.Log(ctx, ev)

	return &RefreshResult{Principal: p, Tokens: pair}, nil
}

// Logout records the logout. The principal id is best-effort, recovered from
// the access token when one is still valid; cookie clearing is the HTTP
// layer's job.
func (s *Service) Logout(ctx context.Context, accessToken string, client ClientInfo) {
	if s == nil {
		return
	}

	principalID := ""
	if accessToken != "" {
		if claims, err := s.tokens.VerifyAccess(accessToken); err == nil {
			principalID = claims.Subject
		}
	}

	ev := event(EventLogoutSuccess, client, map[string]string{"logout_method": "manual"})
	ev.PrincipalID = principalID
	s.audit.Log(ctx, ev)
}
