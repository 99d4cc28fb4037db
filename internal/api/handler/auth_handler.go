package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/incidenthub/auth-gateway/internal/api/middleware"
	"github.com/incidenthub/auth-gateway/internal/core/domain"
	"github.com/incidenthub/auth-gateway/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	tokens      ports.TokenCodec
}

func NewAuthHandler(authService ports.AuthService, tokens ports.TokenCodec) *AuthHandler {
	return &AuthHandler{authService: authService, tokens: tokens}
}

// Register creates a new identity in the user directory.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      200   {object}  registerResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      502   {object}  ErrorResponse
// @Failure      504   {object}  ErrorResponse
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return &domain.ValidationError{Message: "invalid payload"}
	}
	if err := c.Validate(&req); err != nil {
		return domain.ErrInvalidUserData
	}

	res, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, registerResponse{
		Username: res.Username,
		Email:    res.Email,
		Role:     res.Role.String(),
	})
}

// Login verifies credentials and returns a signed session token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      429   {object}  ErrorResponse
// @Failure      502   {object}  ErrorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return &domain.ValidationError{Message: "invalid payload"}
	}

	res, err := h.authService.Login(c.Request().Context(), ports.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loginResponse{Token: res.Token})
}

// Me returns the authenticated caller.
//
// @Summary      Current principal
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200   {object}  principalResponse
// @Failure      401   {object}  ErrorResponse
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return c.JSON(http.StatusOK, principalResponse{
		Subject:  p.SubjectID,
		Username: p.Username,
		Role:     p.Role.String(),
	})
}

// Introspect reports whether a token is currently valid. The rejection
// cause is never returned.
//
// @Summary      Introspect a token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      introspectRequest  true  "Token to inspect"
// @Success      200   {object}  introspectResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Router       /api/auth/introspect [post]
func (h *AuthHandler) Introspect(c echo.Context) error {
	var req introspectRequest
	if err := c.Bind(&req); err != nil {
		return &domain.ValidationError{Message: "invalid payload"}
	}
	if req.Token == "" {
		return &domain.ValidationError{Message: "token is required"}
	}

	claims, err := h.tokens.Validate(req.Token)
	if err != nil {
		return c.JSON(http.StatusOK, introspectResponse{Active: false})
	}
	return c.JSON(http.StatusOK, introspectResponse{
		Active:   true,
		Subject:  claims.Subject,
		Username: claims.Username,
		Role:     claims.Role.String(),
		Expires:  expiresUnix(claims.ExpiresAt),
	})
}
