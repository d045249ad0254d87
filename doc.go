// Package authcore implements the authentication and trust-boundary core of
// the SafeRelief backend: credential verification, account lockout, TOTP
// multi-factor enforcement, token issuance and rotation, brute-force
// mitigation, and security audit logging.
//
// The package exposes a [Service] built through a [Builder]. Callers supply a
// [UserStore] and an [AuditStore] (the persistence collaborators); password
// hashing, token signing, rate limiting, and TOTP are owned by the core.
// CSRF defense and input validation live in the csrf and validate
// subpackages and are applied as request-level gates by the httpapi layer,
// outside the login flow itself.
package authcore
