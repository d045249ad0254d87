// Package jwt issues and verifies the short-lived access tokens and
// longer-lived refresh tokens of the authentication core. Both token classes
// share one claim shape but are signed with distinct HS256 secrets, so a
// refresh-token compromise cannot forge access tokens and vice versa.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid covers bad signatures, expiry, malformed claims, and
	// any algorithm other than the expected symmetric scheme.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrMissingSubject is returned when a structurally valid token carries
	// no principal id.
	ErrMissingSubject = errors.New("token missing subject")
)

// Config holds the signing material and lifetimes for both token classes.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// Claims is the strongly typed claim set for both token classes. Subject is
// the principal id.
type Claims struct {
	jwt.RegisteredClaims
}

// Manager signs and verifies token pairs. It is stateless and safe for
// concurrent use.
type Manager struct {
	config Config
}

// NewManager validates the configuration. Secrets must be present, distinct,
// and the TTLs positive with access strictly shorter than refresh.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("both token secrets are required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.AccessTTL >= cfg.RefreshTTL {
		return nil, errors.New("access TTL must be shorter than refresh TTL")
	}
	return &Manager{config: cfg}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.config.AccessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.config.RefreshTTL }

// IssueAccess signs an access token with subject principalID.
func (m *Manager) IssueAccess(principalID string) (string, error) {
	return m.issue(principalID, m.config.AccessTTL, m.config.AccessSecret)
}

// IssueRefresh signs a refresh token with subject principalID.
func (m *Manager) IssueRefresh(principalID string) (string, error) {
	return m.issue(principalID, m.config.RefreshTTL, m.config.RefreshSecret)
}

func (m *Manager) issue(principalID string, ttl time.Duration, secret []byte) (string, error) {
	if principalID == "" {
		return "", ErrMissingSubject
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyAccess parses and verifies an access token.
func (m *Manager) VerifyAccess(token string) (*Claims, error) {
	return m.verify(token, m.config.AccessSecret)
}

// VerifyRefresh parses and verifies a refresh token.
func (m *Manager) VerifyRefresh(token string) (*Claims, error) {
	return m.verify(token, m.config.RefreshSecret)
}

func (m *Manager) verify(tokenStr string, secret []byte) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Pin the algorithm even though the parser already filters; a token
		// claiming "none" or an asymmetric scheme must never reach the key.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing algorithm: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}

	return claims, nil
}
