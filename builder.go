package authcore

import (
	"errors"
	"log/slog"
	"time"

	"github.com/saferelief/authcore/jwt"
	"github.com/saferelief/authcore/password"
	"github.com/saferelief/authcore/ratelimit"
	"github.com/saferelief/authcore/totp"
)

// Builder assembles a [Service]. Configure it during initialization, call
// Build once, and treat the result as immutable.
type Builder struct {
	config  Config
	users   UserStore
	audits  AuditStore
	limiter ratelimit.Limiter
	logger  *slog.Logger

	built bool
}

// New returns a Builder preloaded with defaults.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the configuration. Zero-valued fields are filled from
// defaults at Build time.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithUserStore sets the principal persistence collaborator. Required.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

// WithAuditStore sets the append-only audit sink. Required.
func (b *Builder) WithAuditStore(store AuditStore) *Builder {
	b.audits = store
	return b
}

// WithRateLimiter overrides the default in-memory fixed-window limiter, e.g.
// with the Redis-backed one for multi-instance deployments.
func (b *Builder) WithRateLimiter(l ratelimit.Limiter) *Builder {
	b.limiter = l
	return b
}

// WithLogger sets the operational logger. Defaults to slog.Default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the configuration and wires the Service.
func (b *Builder) Build() (*Service, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.users == nil {
		return nil, errors.New("user store is required")
	}
	if b.audits == nil {
		return nil, errors.New("audit store is required")
	}

	cfg := b.config
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	codec, err := password.NewCodec(cfg.Password.Cost)
	if err != nil {
		return nil, err
	}

	tokens, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cfg.Token.AccessSecret,
		RefreshSecret: cfg.Token.RefreshSecret,
		AccessTTL:     cfg.Token.AccessTTL,
		RefreshTTL:    cfg.Token.RefreshTTL,
		Issuer:        cfg.Token.Issuer,
	})
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	limiter := b.limiter
	if limiter == nil {
		limiter = ratelimit.NewMemory(cfg.RateLimit.Limit, cfg.RateLimit.Window)
	}

	b.built = true

	return &Service{
		config:  cfg,
		users:   b.users,
		limiter: limiter,
		codec:   codec,
		tokens:  tokens,
		totp:    totp.New(cfg.TOTP.Issuer),
		audit:   newAuditLogger(cfg.Audit, b.audits, logger),
		log:     logger,
		now:     time.Now,
	}, nil
}
