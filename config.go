package authcore

import (
	"bytes"
	"errors"
	"time"
)

// Config holds every tunable of the authentication core. Zero values are
// filled from defaultConfig by [Builder.Build]; explicit values are validated
// there.
type Config struct {
	Token     TokenConfig
	Password  PasswordConfig
	Lockout   LockoutConfig
	RateLimit RateLimitConfig
	Suspicion SuspicionConfig
	TOTP      TOTPConfig
	Audit     AuditConfig
}

// TokenConfig configures the token manager. Access and refresh secrets must
// differ so that compromise of one class cannot forge the other.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// PasswordConfig configures the bcrypt codec.
type PasswordConfig struct {
	Cost int
}

// LockoutConfig controls the per-account failed-attempt lockout.
type LockoutConfig struct {
	MaxAttempts uint
	Duration    time.Duration
}

// RateLimitConfig controls the per-IP fixed-window request budget.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// SuspicionConfig controls the coarse audit-trail brute-force gate: more than
// Threshold failed/validation/rate-limit events from one IP inside Window
// blocks further authentication attempts.
type SuspicionConfig struct {
	Threshold int
	Window    time.Duration
}

// TOTPConfig configures MFA provisioning.
type TOTPConfig struct {
	Issuer string
}

// AuditConfig configures the asynchronous audit dispatcher.
type AuditConfig struct {
	BufferSize int
	// DropIfFull drops events instead of blocking the emitter when the
	// buffer is full. Drops are counted and visible via Service.AuditDropped.
	DropIfFull bool
}

const minSecretBytes = 32

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Issuer:     "saferelief",
		},
		Password: PasswordConfig{Cost: 12},
		Lockout: LockoutConfig{
			MaxAttempts: 5,
			Duration:    15 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Limit:  100,
			Window: time.Hour,
		},
		Suspicion: SuspicionConfig{
			Threshold: 10,
			Window:    30 * time.Minute,
		},
		TOTP:  TOTPConfig{Issuer: "SafeRelief"},
		Audit: AuditConfig{BufferSize: 256, DropIfFull: true},
	}
}

func (c *Config) applyDefaults() {
	def := defaultConfig()
	if c.Token.AccessTTL <= 0 {
		c.Token.AccessTTL = def.Token.AccessTTL
	}
	if c.Token.RefreshTTL <= 0 {
		c.Token.RefreshTTL = def.Token.RefreshTTL
	}
	if c.Token.Issuer == "" {
		c.Token.Issuer = def.Token.Issuer
	}
	if c.Password.Cost == 0 {
		c.Password.Cost = def.Password.Cost
	}
	if c.Lockout.MaxAttempts == 0 {
		c.Lockout.MaxAttempts = def.Lockout.MaxAttempts
	}
	if c.Lockout.Duration <= 0 {
		c.Lockout.Duration = def.Lockout.Duration
	}
	if c.RateLimit.Limit == 0 {
		c.RateLimit.Limit = def.RateLimit.Limit
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = def.RateLimit.Window
	}
	if c.Suspicion.Threshold == 0 {
		c.Suspicion.Threshold = def.Suspicion.Threshold
	}
	if c.Suspicion.Window <= 0 {
		c.Suspicion.Window = def.Suspicion.Window
	}
	if c.TOTP.Issuer == "" {
		c.TOTP.Issuer = def.TOTP.Issuer
	}
	if c.Audit.BufferSize <= 0 {
		c.Audit.BufferSize = def.Audit.BufferSize
	}
}

func (c *Config) validate() error {
	if len(c.Token.AccessSecret) < minSecretBytes {
		return errors.New("access secret must be at least 32 bytes")
	}
	if len(c.Token.RefreshSecret) < minSecretBytes {
		return errors.New("refresh secret must be at least 32 bytes")
	}
	if bytes.Equal(c.Token.AccessSecret, c.Token.RefreshSecret) {
		return errors.New("access and refresh secrets must differ")
	}
	if c.Token.AccessTTL >= c.Token.RefreshTTL {
		return errors.New("access TTL must be shorter than refresh TTL")
	}
	if c.RateLimit.Limit < 1 {
		return errors.New("rate limit must be positive")
	}
	return nil
}
