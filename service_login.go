package authcore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/saferelief/authcore/validate"
)

// Login runs the full authentication sequence: rate limit, suspicion gate,
// input validation, lockout check, password verification with failed-attempt
// bookkeeping, MFA, and token issuance. Unknown email and wrong password both
// come back as ErrInvalidCredentials; a missing MFA code after a correct
// password comes back as the distinct ErrMFARequired.
func (s *Service) Login(ctx context.Context, creds Credentials, client ClientInfo) (*LoginResult, error) {
	if s == nil {
		return nil, ErrServiceNotReady
	}

	allowed, err := s.limiter.Allow(ctx, client.IP)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	if !allowed {
		s.audit.Log(ctx, event(EventRateLimitExceeded, client, map[string]string{
			"reason": "too many login attempts",
		}))
		return nil, ErrRateLimited
	}

	// Secondary, coarser brute-force gate over the audit trail, independent
	// of the per-IP counter.
	if s.audit.SuspiciousActivity(ctx, client.IP, s.config.Suspicion.Window, s.config.Suspicion.Threshold) {
		s.audit.Log(ctx, event(EventSuspiciousActivity, client, map[string]string{
			"reason": "multiple failed attempts detected",
		}))
		return nil, ErrSuspiciousActivity
	}

	email := validate.Sanitize(creds.Email)
	pass := validate.Sanitize(creds.Password)
	mfaCode := validate.Sanitize(creds.MFACode)

	if errs := validate.Email(email); len(errs) > 0 {
		ev := event(EventValidationFailed, client, map[string]string{"reason": "invalid email format"})
		ev.Email = email
		s.audit.Log(ctx, ev)
		return nil, errs
	}

	p, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			ev := event(EventLoginFailed, client, map[string]string{"reason": "user not found"})
			ev.Email = email
			s.audit.Log(ctx, ev)
			// Same message as a password mismatch; only the audit trail
			// distinguishes the two.
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("credential lookup: %w", err)
	}

	now := s.now()

	// The lock takes precedence over the password check.
	if p.Locked(now) {
		ev := event(EventLoginFailed, client, map[string]string{
			"reason":       "account locked",
			"locked_until": p.LockedUntil.Format(time.RFC3339),
		})
		ev.PrincipalID = p.ID
		ev.Email = p.Email
		s.audit.Log(ctx, ev)
		return nil, ErrAccountLocked
	}

	if !s.codec.Verify(pass, p.PasswordHash) {
		return nil, s.recordFailedPassword(ctx, p, client, now)
	}

	// A verified password always resets the counters, even if MFA fails
	// right after.
	if err := s.users.UpdateLockState(ctx, p.ID, 0, nil); err != nil {
		return nil, fmt.Errorf("reset failed attempts: %w", err)
	}
	p.FailedAttempts = 0
	p.LockedUntil = nil

	method := "password_only"
	if p.MFAEnabled {
		if mfaCode == "" {
			ev := event(EventLoginFailed, client, map[string]string{"reason": "mfa code required but not provided"})
			ev.PrincipalID = p.ID
			ev.Email = p.Email
			s.audit.Log(ctx, ev)
			return nil, ErrMFARequired
		}
		if !s.totp.Validate(mfaCode, p.MFASecret) {
			ev := event(EventLoginMFAFailed, client, map[string]string{"reason": "invalid mfa code"})
			ev.PrincipalID = p.ID
			ev.Email = p.Email
			s.audit.Log(ctx, ev)
			return nil, ErrMFAInvalid
		}
		method = "password_and_mfa"
	}

	pair, err := s.issuePair(p.ID)
	if err != nil {
		return nil, err
	}

	ev := event(EventLoginSuccess, client, map[string]string{"login_method": method})
	ev.PrincipalID = p.ID
	ev.Email = p.Email
	s.audit.Log(ctx, ev)

	return &LoginResult{Principal: p, Tokens: pair, Method: method}, nil
}

// recordFailedPassword increments the failure count, locks the account when
// the threshold is reached, and audits accordingly. The caller always
// receives the generic credentials error.
func (s *Service) recordFailedPassword(ctx context.Context, p *Principal, client ClientInfo, now time.Time) error {
	attempts := p.FailedAttempts + 1

	var lockedUntil *time.Time
	if attempts >= s.config.Lockout.MaxAttempts {
		t := now.Add(s.config.Lockout.Duration)
		lockedUntil = &t
	}

	if err := s.users.UpdateLockState(ctx, p.ID, attempts, lockedUntil); err != nil {
		return fmt.Errorf("record failed attempt: %w", err)
	}

	details := map[string]string{
		"reason":          "invalid password",
		"failed_attempts": strconv.FormatUint(uint64(attempts), 10),
	}

	eventType := EventLoginFailed
	if lockedUntil != nil {
		eventType = EventAccountLocked
		details["account_locked"] = "true"
		details["locked_until"] = lockedUntil.Format(time.RFC3339)
	}

	ev := event(eventType, client, details)
	ev.PrincipalID = p.ID
	ev.Email = p.Email
	s.audit.Log(ctx, ev)

	return ErrInvalidCredentials
}
