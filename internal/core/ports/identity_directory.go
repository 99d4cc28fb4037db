package ports

import (
	"context"

	"github.com/incidenthub/auth-gateway/internal/core/domain"
)

// IdentityDirectory is the remote user-directory service that owns identity
// records.
type IdentityDirectory interface {
	// Create stores a new identity and returns the record as persisted.
	Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error)
	// FindByUsername returns domain.ErrIdentityNotFound when the directory
	// answers 404, and *domain.DownstreamError for every other failure.
	FindByUsername(ctx context.Context, username string) (*domain.Identity, error)
}
