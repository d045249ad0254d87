// Package postgres implements the authcore persistence collaborators over
// PostgreSQL using parameterized queries. Schema management (migrations,
// indexes) lives outside this core.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	authcore "github.com/saferelief/authcore"
)

const uniqueViolation = "23505"

// UserStore persists principals in the users table.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore wraps the given connection pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

const principalColumns = `id, username, email, password_hash, mfa_secret, mfa_enabled,
	failed_attempts, locked_until, created_at, updated_at`

func scanPrincipal(row pgx.Row) (*authcore.Principal, error) {
	var p authcore.Principal
	err := row.Scan(
		&p.ID, &p.Username, &p.Email, &p.PasswordHash, &p.MFASecret, &p.MFAEnabled,
		&p.FailedAttempts, &p.LockedUntil, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authcore.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("scan principal: %w", err)
	}
	return &p, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*authcore.Principal, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+principalColumns+` FROM users WHERE email = $1`, email)
	return scanPrincipal(row)
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*authcore.Principal, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+principalColumns+` FROM users WHERE username = $1`, username)
	return scanPrincipal(row)
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*authcore.Principal, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+principalColumns+` FROM users WHERE id = $1`, id)
	return scanPrincipal(row)
}

func (s *UserStore) Create(ctx context.Context, p *authcore.Principal) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, email, password_hash, mfa_secret, mfa_enabled,
			failed_attempts, locked_until, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.Username, p.Email, p.PasswordHash, p.MFASecret, p.MFAEnabled,
		p.FailedAttempts, p.LockedUntil, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "username") {
				return authcore.ErrDuplicateUsername
			}
			return authcore.ErrDuplicateEmail
		}
		return fmt.Errorf("insert principal: %w", err)
	}
	return nil
}

func (s *UserStore) UpdateLockState(ctx context.Context, id string, failedAttempts uint, lockedUntil *time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET failed_attempts = $2, locked_until = $3, updated_at = now()
		WHERE id = $1`,
		id, failedAttempts, lockedUntil,
	)
	if err != nil {
		return fmt.Errorf("update lock state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return authcore.ErrPrincipalNotFound
	}
	return nil
}

func (s *UserStore) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now()
		WHERE id = $1`,
		id, hash,
	)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return authcore.ErrPrincipalNotFound
	}
	return nil
}

func (s *UserStore) UpdateMFA(ctx context.Context, id, secret string, enabled bool) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET mfa_secret = $2, mfa_enabled = $3, updated_at = now()
		WHERE id = $1`,
		id, secret, enabled,
	)
	if err != nil {
		return fmt.Errorf("update mfa: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return authcore.ErrPrincipalNotFound
	}
	return nil
}

// AuditStore appends events to the audit_logs table. Rows are never updated
// or deleted by this core.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore wraps the given connection pool.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

func (s *AuditStore) Append(ctx context.Context, event authcore.AuditEvent) error {
	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO audit_logs (id, principal_id, email, event_type, ip_address,
			user_agent, details, severity, created_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7, $8, $9)`,
		event.ID, event.PrincipalID, event.Email, string(event.EventType),
		event.IPAddress, event.UserAgent, details, string(event.Severity), event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *AuditStore) CountByIP(ctx context.Context, ip string, types []authcore.EventType, since time.Time) (int, error) {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}

	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM audit_logs
		WHERE ip_address = $1 AND event_type = ANY($2) AND created_at >= $3`,
		ip, names, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count audit events: %w", err)
	}
	return count, nil
}
