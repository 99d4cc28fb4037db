package service

import (
	"github.com/incidenthub/auth-gateway/internal/core/domain"
	"github.com/incidenthub/auth-gateway/internal/core/ports"
)

// CredentialVerifier checks a supplied password against an identity that has
// already been fetched from the directory. It performs no I/O.
type CredentialVerifier struct {
	hasher ports.PasswordHasher
}

func NewCredentialVerifier(hasher ports.PasswordHasher) *CredentialVerifier {
	return &CredentialVerifier{hasher: hasher}
}

// Verify reports whether password matches identity's stored hash.
func (v *CredentialVerifier) Verify(identity *domain.Identity, password string) bool {
	if identity == nil {
		return false
	}
	return v.hasher.Verify(password, identity.PasswordHash)
}
