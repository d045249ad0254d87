package jwt

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	testAccessSecret  = []byte("access-secret-0123456789abcdef-0123456789abcdef")
	testRefreshSecret = []byte("refresh-secret-0123456789abcdef-0123456789abcde")
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "saferelief",
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestNewManagerValidation(t *testing.T) {
	base := Config{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing access secret", func(c *Config) { c.AccessSecret = nil }},
		{"missing refresh secret", func(c *Config) { c.RefreshSecret = nil }},
		{"identical secrets", func(c *Config) { c.RefreshSecret = c.AccessSecret }},
		{"zero access ttl", func(c *Config) { c.AccessTTL = 0 }},
		{"zero refresh ttl", func(c *Config) { c.RefreshTTL = 0 }},
		{"access ttl not shorter", func(c *Config) { c.AccessTTL = c.RefreshTTL }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if _, err := NewManager(cfg); err == nil {
				t.Error("expected configuration error")
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	m := newTestManager(t)

	access, err := m.IssueAccess("principal-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	claims, err := m.VerifyAccess(access)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.Subject != "principal-1" {
		t.Errorf("subject = %q, want principal-1", claims.Subject)
	}
	if claims.Issuer != "saferelief" {
		t.Errorf("issuer = %q", claims.Issuer)
	}

	refresh, err := m.IssueRefresh("principal-1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if _, err := m.VerifyRefresh(refresh); err != nil {
		t.Fatalf("VerifyRefresh: %v", err)
	}
}

func TestTokenClassesAreNotInterchangeable(t *testing.T) {
	m := newTestManager(t)

	access, _ := m.IssueAccess("principal-1")
	refresh, _ := m.IssueRefresh("principal-1")

	if _, err := m.VerifyRefresh(access); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("access token verified as refresh: %v", err)
	}
	if _, err := m.VerifyAccess(refresh); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("refresh token verified as access: %v", err)
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	m := newTestManager(t)

	t.Run("garbage", func(t *testing.T) {
		if _, err := m.VerifyAccess("not.a.token"); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		other, _ := NewManager(Config{
			AccessSecret:  []byte("some-other-access-secret-0123456789abcd"),
			RefreshSecret: testRefreshSecret,
			AccessTTL:     time.Minute,
			RefreshTTL:    time.Hour,
			Issuer:        "saferelief",
		})
		token, _ := other.IssueAccess("principal-1")
		if _, err := m.VerifyAccess(token); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("token signed with foreign key accepted: %v", err)
		}
	})

	t.Run("none algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Subject:   "principal-1",
			Issuer:    "saferelief",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatalf("sign none token: %v", err)
		}
		if _, err := m.VerifyAccess(signed); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("alg=none token accepted: %v", err)
		}
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, _ := NewManager(Config{
			AccessSecret:  testAccessSecret,
			RefreshSecret: testRefreshSecret,
			AccessTTL:     time.Minute,
			RefreshTTL:    time.Hour,
			Issuer:        "someone-else",
		})
		token, _ := other.IssueAccess("principal-1")
		if _, err := m.VerifyAccess(token); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("foreign issuer accepted: %v", err)
		}
	})
}

func TestVerifyRejectsExpired(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "principal-1",
			Issuer:    "saferelief",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testAccessSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	m := newTestManager(t)
	if _, err := m.VerifyAccess(signed); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expired token accepted: %v", err)
	}
}

func TestIssueRequiresSubject(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.IssueAccess(""); !errors.Is(err, ErrMissingSubject) {
		t.Errorf("got %v", err)
	}
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Issuer:    "saferelief",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testAccessSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	m := newTestManager(t)
	if _, err := m.VerifyAccess(signed); !errors.Is(err, ErrMissingSubject) {
		t.Errorf("got %v", err)
	}
}
