package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/incidenthub/auth-gateway/internal/core/domain"
	"github.com/incidenthub/auth-gateway/internal/core/ports"
	"github.com/incidenthub/auth-gateway/internal/pkg/metrics"
)

const bearerScheme = "bearer"

// Authenticate validates an optional bearer token and attaches the resulting
// principal to the request. It never rejects: requests without a valid token
// continue unauthenticated and the rejection cause is not exposed. Routes
// that need a caller add RequireAuth or RBAC.
func Authenticate(codec ports.TokenCodec, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return next(c)
			}

			claims, err := codec.Validate(raw)
			if err != nil {
				reason, ok := domain.RejectionReasonOf(err)
				if !ok {
					reason = domain.RejectMalformed
				}
				metrics.TokenValidationsTotal.WithLabelValues(string(reason)).Inc()
				log.Debug().
					Str("reason", string(reason)).
					Str("path", c.Path()).
					Msg("bearer token rejected")
				return next(c)
			}
			metrics.TokenValidationsTotal.WithLabelValues("valid").Inc()

			p := domain.PrincipalFromClaims(claims)
			c.Set(PrincipalKey, p)
			c.Set(SubjectKey, p.SubjectID)
			c.Set(UsernameKey, p.Username)
			c.Set(RoleKey, p.Role)
			c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), p)))

			return next(c)
		}
	}
}

// RequireAuth rejects requests that Authenticate left unauthenticated.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := PrincipalFrom(c); !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			}
			return next(c)
		}
	}
}

// bearerToken extracts the credential from "Bearer <token>".
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
