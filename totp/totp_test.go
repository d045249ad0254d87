package totp

import (
	"strings"
	"testing"
	"time"

	otptotp "github.com/pquerna/otp/totp"
)

func TestGenerate(t *testing.T) {
	p := New("SafeRelief")

	secret, err := p.Generate("worker@example.org")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if secret.Base32 == "" {
		t.Error("empty secret")
	}
	if !strings.HasPrefix(secret.URI, "otpauth://totp/") {
		t.Errorf("unexpected URI scheme: %q", secret.URI)
	}
	if !strings.Contains(secret.URI, "SafeRelief") {
		t.Errorf("URI missing issuer: %q", secret.URI)
	}
	if !strings.Contains(secret.URI, "worker@example.org") {
		t.Errorf("URI missing account: %q", secret.URI)
	}

	other, err := p.Generate("worker@example.org")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if other.Base32 == secret.Base32 {
		t.Error("two generated secrets are identical")
	}
}

func TestValidate(t *testing.T) {
	p := New("SafeRelief")
	secret, err := p.Generate("worker@example.org")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	code, err := otptotp.GenerateCode(secret.Base32, time.Now())
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}

	if !p.Validate(code, secret.Base32) {
		t.Error("current code rejected")
	}
	if p.Validate("000000", secret.Base32) && code != "000000" {
		t.Error("wrong code accepted")
	}
	if p.Validate("", secret.Base32) {
		t.Error("empty code accepted")
	}
}
