// Package password wraps bcrypt for credential storage and verification.
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is deliberately above the library default; login latency is an
// acceptable price for slower offline cracking.
const DefaultCost = 12

// Codec hashes and verifies passwords. Verification is constant-time inside
// bcrypt.
type Codec struct {
	cost int
}

// NewCodec validates the cost against bcrypt's supported range.
func NewCodec(cost int) (*Codec, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, errors.New("bcrypt cost out of range")
	}
	return &Codec{cost: cost}, nil
}

// Hash returns the salted bcrypt hash of the password.
func (c *Codec) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether the password matches the stored hash.
func (c *Codec) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
