// Package credential hashes and verifies user secrets (passwords and PINs).
package credential

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 10

// ErrEmptySecret is returned when hashing an empty secret.
var ErrEmptySecret = errors.New("credential: empty secret")

// Gate is a one-way hash of secrets with verification.
type Gate interface {
	Hash(secret string) (string, error)
	Verify(secret, digest string) bool
}

// Bcrypt implements Gate with golang.org/x/crypto/bcrypt.
type Bcrypt struct {
	cost int
}

// NewBcrypt returns a Gate using the given cost. Out of range costs fall back to DefaultCost.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Bcrypt{cost: cost}
}

// Cost returns the configured work factor.
func (b *Bcrypt) Cost() int { return b.cost }

// Hash returns the bcrypt digest of secret.
func (b *Bcrypt) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(secret), b.cost)
	if err != nil {
		return "", fmt.Errorf("credential: hash: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether secret matches digest. A malformed digest never matches.
func (b *Bcrypt) Verify(secret, digest string) bool {
	if secret == "" || digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
}
