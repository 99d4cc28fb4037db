package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/incidenthub/auth-gateway/internal/core/domain"
)

// Echo context keys set by Authenticate.
const (
	PrincipalKey = "principal"
	UsernameKey  = "username"
	RoleKey      = "role"
	SubjectKey   = "sub"
)

type principalCtxKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFromContext returns the principal attached by Authenticate, if any.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(domain.Principal)
	return p, ok
}

// PrincipalFrom returns the authenticated caller of c. ok is false for
// unauthenticated requests.
func PrincipalFrom(c echo.Context) (domain.Principal, bool) {
	p, ok := c.Get(PrincipalKey).(domain.Principal)
	return p, ok
}
