package ports

import (
	"time"

	"github.com/incidenthub/auth-gateway/internal/core/domain"
)

// PasswordHasher produces salted one-way hashes. Verify returns false for a
// mismatch and for any hash it cannot parse.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// TokenClaims are the caller-supplied claims embedded in an issued token.
type TokenClaims struct {
	Username string
	Role     domain.Role
}

// TokenCodec issues and validates signed session tokens. Validate returns a
// *domain.TokenRejection on failure.
type TokenCodec interface {
	Issue(subjectID string, claims TokenClaims, ttl time.Duration) (string, error)
	Validate(token string) (domain.Claims, error)
}
