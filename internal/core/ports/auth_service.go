package ports

import (
	"context"

	"github.com/incidenthub/auth-gateway/internal/core/domain"
)

// RegisterInput carries a registration request from the transport layer.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

// RegisterResult is the public view of a newly created identity.
type RegisterResult struct {
	Username string
	Email    string
	Role     domain.Role
}

// LoginInput carries a login request from the transport layer.
type LoginInput struct {
	Username string
	Password string
}

// LoginResult holds the issued session token.
type LoginResult struct {
	Token string
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*RegisterResult, error)
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
}
