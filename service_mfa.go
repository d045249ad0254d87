package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/saferelief/authcore/validate"
)

// EnableMFA provisions a fresh TOTP secret for the principal, marks MFA
// enabled, and returns the secret plus the otpauth URI for the authenticator
// app.
func (s *Service) EnableMFA(ctx context.Context, principalID string, client ClientInfo) (*MFAProvisioning, error) {
	if s == nil {
		return nil, ErrServiceNotReady
	}

	p, err := s.users.GetByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("principal lookup: %w", err)
	}

	secret, err := s.totp.Generate(p.Email)
	if err != nil {
		return nil, fmt.Errorf("generate mfa secret: %w", err)
	}

	if err := s.users.UpdateMFA(ctx, p.ID, secret.Base32, true); err != nil {
		return nil, fmt.Errorf("enable mfa: %w", err)
	}

	ev := event(EventMFAEnabled, client, nil)
	ev.PrincipalID = p.ID
	ev.Email = p.Email
	s.audit.Log(ctx, ev)

	return &MFAProvisioning{Secret: secret.Base32, QRCodeURI: secret.URI}, nil
}

// DisableMFA requires the user to prove both factors again before the secret
// is cleared.
func (s *Service) DisableMFA(ctx context.Context, principalID, currentPassword, mfaCode string, client ClientInfo) error {
	if s == nil {
		return ErrServiceNotReady
	}

	p, err := s.users.GetByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return ErrPrincipalNotFound
		}
		return fmt.Errorf("principal lookup: %w", err)
	}
	if !p.MFAEnabled {
		return ErrMFANotEnabled
	}

	if !s.codec.Verify(validate.Sanitize(currentPassword), p.PasswordHash) {
		ev := event(EventValidationFailed, client, map[string]string{"reason": "password verification failed for mfa disable"})
		ev.PrincipalID = p.ID
		ev.Email = p.Email
		s.audit.Log(ctx, ev)
		return ErrCurrentPasswordInvalid
	}

	code := validate.Sanitize(mfaCode)
	if code == "" {
		return ErrMFARequired
	}
	if !s.totp.Validate(code, p.MFASecret) {
		ev := event(EventLoginMFAFailed, client, map[string]string{"reason": "mfa verification failed for mfa disable"})
		ev.PrincipalID = p.ID
		ev.Email = p.Email
		s.audit.Log(ctx, ev)
		return ErrMFAInvalid
	}

	if err := s.users.UpdateMFA(ctx, p.ID, "", false); err != nil {
		return fmt.Errorf("disable mfa: %w", err)
	}

	ev := event(EventMFADisabled, client, nil)
	ev.PrincipalID = p.ID
	ev.Email = p.Email
	s.audit.Log(ctx, ev)

	return nil
}
