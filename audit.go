package authcore

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EventType is the closed set of security events this core emits.
type EventType string

const (
	EventLoginSuccess       EventType = "LOGIN_SUCCESS"
	EventLoginFailed        EventType = "LOGIN_FAILED"
	EventLoginMFAFailed     EventType = "LOGIN_MFA_FAILED"
	EventRegisterSuccess    EventType = "REGISTER_SUCCESS"
	EventRegisterFailed     EventType = "REGISTER_FAILED"
	EventPasswordChanged    EventType = "PASSWORD_CHANGED"
	EventMFAEnabled         EventType = "MFA_ENABLED"
	EventMFADisabled        EventType = "MFA_DISABLED"
	EventAccountLocked      EventType = "ACCOUNT_LOCKED"
	EventAccountUnlocked    EventType = "ACCOUNT_UNLOCKED"
	EventTokenRefreshed     EventType = "TOKEN_REFRESHED"
	EventLogoutSuccess      EventType = "LOGOUT_SUCCESS"
	EventSuspiciousActivity EventType = "SUSPICIOUS_ACTIVITY"
	EventRateLimitExceeded  EventType = "RATE_LIMIT_EXCEEDED"
	EventValidationFailed   EventType = "VALIDATION_FAILED"
)

// Severity classifies an audit event for alerting and log-level routing.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// severityFor is a fixed lookup. Unknown types default to MEDIUM so that a
// new event type can never silently disappear below the alerting floor.
func severityFor(t EventType) Severity {
	switch t {
	case EventSuspiciousActivity, EventAccountLocked, EventRateLimitExceeded:
		return SeverityHigh
	case EventLoginFailed, EventLoginMFAFailed, EventRegisterFailed, EventValidationFailed:
		return SeverityMedium
	case EventLoginSuccess, EventRegisterSuccess, EventPasswordChanged,
		EventMFAEnabled, EventMFADisabled, EventTokenRefreshed,
		EventLogoutSuccess, EventAccountUnlocked:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// AuditEvent is an immutable, append-only security record. PrincipalID and
// Email are optional; Email covers pre-auth events where no principal exists
// yet.
type AuditEvent struct {
	ID          string            `json:"id"`
	EventType   EventType         `json:"eventType"`
	PrincipalID string            `json:"principalId,omitempty"`
	Email       string            `json:"email,omitempty"`
	IPAddress   string            `json:"ipAddress"`
	UserAgent   string            `json:"userAgent"`
	Details     map[string]string `json:"details,omitempty"`
	Severity    Severity          `json:"severity"`
	Timestamp   time.Time         `json:"timestamp"`
}

// AuditStore is the append-only persistence collaborator for audit events.
// CountByIP returns the number of events of the given types recorded for the
// IP since the given instant.
type AuditStore interface {
	Append(ctx context.Context, event AuditEvent) error
	CountByIP(ctx context.Context, ip string, types []EventType, since time.Time) (int, error)
}

// suspicionEventTypes are the event types the brute-force heuristic counts.
var suspicionEventTypes = []EventType{
	EventLoginFailed,
	EventValidationFailed,
	EventRateLimitExceeded,
}

// auditLogger persists events through the async dispatcher and mirrors each
// one to the operational log at a level matching its severity.
type auditLogger struct {
	log      *slog.Logger
	store    AuditStore
	dispatch *auditDispatcher
	now      func() time.Time
}

func newAuditLogger(cfg AuditConfig, store AuditStore, log *slog.Logger) *auditLogger {
	l := &auditLogger{
		log:   log,
		store: store,
		now:   time.Now,
	}
	l.dispatch = newAuditDispatcher(cfg, store, log)
	return l
}

// Log finalizes the event (id, timestamp, derived severity) and emits it.
// Persistence is fire-and-forget: the caller never waits on the store.
func (l *auditLogger) Log(ctx context.Context, event AuditEvent) {
	if l == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}
	if event.Severity == "" {
		event.Severity = severityFor(event.EventType)
	}

	l.mirror(event)
	l.dispatch.Emit(ctx, event)
}

func (l *auditLogger) mirror(event AuditEvent) {
	attrs := []any{
		slog.String("event_type", string(event.EventType)),
		slog.String("severity", string(event.Severity)),
		slog.String("ip_address", event.IPAddress),
	}
	if event.PrincipalID != "" {
		attrs = append(attrs, slog.String("principal_id", event.PrincipalID))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", event.Email))
	}
	for k, v := range event.Details {
		attrs = append(attrs, slog.String(k, v))
	}

	switch event.Severity {
	case SeverityHigh, SeverityCritical:
		l.log.Error("security alert", attrs...)
	case SeverityMedium:
		l.log.Warn("security warning", attrs...)
	default:
		l.log.Info("audit", attrs...)
	}
}

// SuspiciousActivity reports whether the IP has produced more than threshold
// failed/validation/rate-limit events inside the window. A store failure
// fails open: the primary gate is the rate limiter, and auditing must never
// take the login path down.
func (l *auditLogger) SuspiciousActivity(ctx context.Context, ip string, window time.Duration, threshold int) bool {
	if l == nil || l.store == nil {
		return false
	}
	count, err := l.store.CountByIP(ctx, ip, suspicionEventTypes, l.now().Add(-window))
	if err != nil {
		l.log.Error("suspicious activity check failed", slog.String("error", err.Error()))
		return false
	}
	return count > threshold
}

func (l *auditLogger) Close() {
	if l == nil {
		return
	}
	l.dispatch.Close()
}
