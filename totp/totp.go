// Package totp generates and validates time-based one-time codes for MFA.
package totp

import (
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Provider issues per-account shared secrets and validates codes against
// them. Standard parameters: 30 second period, 6 digits, SHA1, with the
// library's default one-step clock-skew tolerance on validation.
type Provider struct {
	issuer string
}

// New returns a Provider labeling provisioning URIs with the given issuer.
func New(issuer string) *Provider {
	return &Provider{issuer: issuer}
}

// Secret holds a freshly generated shared secret and the otpauth:// URI an
// authenticator app can enroll from.
type Secret struct {
	Base32 string
	URI    string
}

// Generate creates a new shared secret for the account.
func (p *Provider) Generate(account string) (*Secret, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      p.issuer,
		AccountName: account,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}
	return &Secret{Base32: key.Secret(), URI: key.URL()}, nil
}

// Validate reports whether the code is currently valid for the secret.
func (p *Provider) Validate(code, secret string) bool {
	return totp.Validate(code, secret)
}
