// Package password implements salted password hashing with bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/incidenthub/auth-gateway/internal/core/domain"
)

// MaxLength is the longest plaintext bcrypt reads, in bytes.
const MaxLength = 72

// DefaultCost matches the work factor used by the original user-service
// hashes, so existing records keep verifying at the same speed.
const DefaultCost = 10

// BcryptHasher hashes and verifies passwords. It holds no mutable state and is
// safe for concurrent use.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using cost, or DefaultCost when cost is
// outside bcrypt's accepted range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Cost reports the configured work factor.
func (h *BcryptHasher) Cost() int { return h.cost }

// Hash returns a bcrypt hash of plaintext with a fresh random salt.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", domain.ErrPasswordTooLong
		}
		return "", fmt.Errorf("password: hash: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hash. Malformed hashes, unknown
// versions and plaintexts longer than MaxLength yield false.
func (h *BcryptHasher) Verify(plaintext, hash string) bool {
	if hash == "" || len(plaintext) > MaxLength {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
