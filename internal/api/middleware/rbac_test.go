package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/incidenthub/auth-gateway/internal/core/domain"
)

func TestRBAC(t *testing.T) {
	tests := []struct {
		name      string
		principal *domain.Principal
		want      int
	}{
		{"allowed", &domain.Principal{SubjectID: "1", Username: "root", Role: domain.RoleAdmin}, http.StatusOK},
		{"denied", &domain.Principal{SubjectID: "2", Username: "op", Role: domain.RoleOperator}, http.StatusForbidden},
		{"unauthenticated", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			if tt.principal != nil {
				c.Set(PrincipalKey, *tt.principal)
			}

			called := false
			h := RBAC(domain.RoleAdmin)(func(c echo.Context) error {
				called = true
				return c.NoContent(http.StatusOK)
			})
			if err := h(c); err != nil {
				e.HTTPErrorHandler(err, c)
			}

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			if called != (tt.want == http.StatusOK) {
				t.Fatalf("unexpected next invocation: %v", called)
			}
		})
	}
}

func TestRBAC_MultipleRoles(t *testing.T) {
	e := echo.New()
	h := RBAC(domain.RoleAdmin, domain.RoleAnalyst)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	for _, role := range domain.Roles {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set(PrincipalKey, domain.Principal{SubjectID: "x", Username: "u", Role: role})

		if err := h(c); err != nil {
			e.HTTPErrorHandler(err, c)
		}
		want := http.StatusOK
		if role == domain.RoleOperator {
			want = http.StatusForbidden
		}
		if rec.Code != want {
			t.Errorf("role %s: expected %d, got %d", role, want, rec.Code)
		}
	}
}
