package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/saferelief/authcore/validate"
)

// PasswordChange is the input to [Service.ChangePassword].
type PasswordChange struct {
	CurrentPassword string
	NewPassword     string
	MFACode         string
}

// ChangePassword re-verifies the current password (and the MFA code when
// enabled), rejects reuse of the current password, and stores a fresh hash.
func (s *Service) ChangePassword(ctx context.Context, principalID string, change PasswordChange, client ClientInfo) error {
	if s == nil {
		return ErrServiceNotReady
	}

	current := validate.Sanitize(change.CurrentPassword)
	next := validate.Sanitize(change.NewPassword)
	mfaCode := validate.Sanitize(change.MFACode)

	if errs := validate.Password(next); len(errs) > 0 {
		ev := event(EventValidationFailed, client, map[string]string{"reason": "new password validation failed"})
		ev.PrincipalID = principalID
		s.audit.Log(ctx, ev)
		return errs
	}

	p, err := s.users.GetByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return ErrPrincipalNotFound
		}
		return fmt.Errorf("principal lookup: %w", err)
	}

	if !s.codec.Verify(current, p.PasswordHash) {
		ev := event(EventValidationFailed, client, map[string]string{"reason": "current password verification failed"})
		ev.PrincipalID = p.ID
		ev.Email = p.Email
		s.audit.Log(ctx, ev)
		return ErrCurrentPasswordInvalid
	}

	if s.codec.Verify(next, p.PasswordHash) {
		ev := event(EventValidationFailed, client, map[string]string{"reason": "new password same as current password"})
		ev.PrincipalID = p.ID
		ev.Email = p.Email
		s.audit.Log(ctx, ev)
		return ErrPasswordReuse
	}

	if p.MFAEnabled {
		if mfaCode == "" {
			return ErrMFARequired
		}
		if !s.totp.Validate(mfaCode, p.MFASecret) {
			ev := event(EventValidationFailed, client, map[string]string{"reason": "mfa verification failed for password change"})
			ev.PrincipalID = p.ID
			ev.Email = p.Email
			s.audit.Log(ctx, ev)
			return ErrMFAInvalid
		}
	}

	hash, err := s.codec.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, p.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	method := "password_only"
	if p.MFAEnabled {
		method = "password_and_mfa"
	}
	ev := event(EventPasswordChanged, client, map[string]string{"change_method": method})
	ev.PrincipalID = p.ID
	ev.Email = p.Email
	s.audit.Log(ctx, ev)

	return nil
}
