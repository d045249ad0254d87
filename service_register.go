package authcore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/saferelief/authcore/validate"
)

// Register creates a principal after validating every field and checking for
// duplicates. A TOTP secret is provisioned at creation but MFA stays disabled
// until the user enrolls.
func (s *Service) Register(ctx context.Context, reg Registration, client ClientInfo) (*Principal, error) {
	if s == nil {
		return nil, ErrServiceNotReady
	}

	allowed, err := s.limiter.Allow(ctx, client.IP)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	if !allowed {
		s.audit.Log(ctx, event(EventRateLimitExceeded, client, map[string]string{
			"reason": "too many registration attempts",
		}))
		return nil, ErrRateLimited
	}

	username := validate.Sanitize(reg.Username)
	email := validate.Sanitize(reg.Email)
	pass := validate.Sanitize(reg.Password)

	var errs validate.Errors
	errs = append(errs, validate.Username(username)...)
	errs = append(errs, validate.Email(email)...)
	errs = append(errs, validate.Password(pass)...)
	if len(errs) > 0 {
		ev := event(EventValidationFailed, client, map[string]string{
			"reason": "input validation failed",
			"errors": strconv.Itoa(len(errs)) + " validation errors",
		})
		ev.Email = email
		s.audit.Log(ctx, ev)
		return nil, errs
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		ev := event(EventRegisterFailed, client, map[string]string{"reason": "email already registered"})
		ev.Email = email
		s.audit.Log(ctx, ev)
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrPrincipalNotFound) {
		return nil, fmt.Errorf("email lookup: %w", err)
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		ev := event(EventRegisterFailed, client, map[string]string{"reason": "username already taken"})
		ev.Email = email
		s.audit.Log(ctx, ev)
		return nil, ErrDuplicateUsername
	} else if !errors.Is(err, ErrPrincipalNotFound) {
		return nil, fmt.Errorf("username lookup: %w", err)
	}

	hash, err := s.codec.Hash(pass)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	secret, err := s.totp.Generate(email)
	if err != nil {
		return nil, fmt.Errorf("generate mfa secret: %w", err)
	}

	now := s.now()
	p := &Principal{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		MFASecret:    secret.Base32,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, p); err != nil {
		// The pre-checks race with concurrent registration; the store's
		// uniqueness constraint is the authority.
		if errors.Is(err, ErrDuplicateEmail) || errors.Is(err, ErrDuplicateUsername) {
			ev := event(EventRegisterFailed, client, map[string]string{"reason": "duplicate key constraint"})
			ev.Email = email
			s.audit.Log(ctx, ev)
			return nil, err
		}
		return nil, fmt.Errorf("create principal: %w", err)
	}

	ev := event(EventRegisterSuccess, client, map[string]string{"username": username})
	ev.PrincipalID = p.ID
	ev.Email = email
	s.audit.Log(ctx, ev)

	return p, nil
}
