package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/incidenthub/auth-gateway/internal/api/handler"
	"github.com/incidenthub/auth-gateway/internal/core/domain"
)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain errors to their HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, handler.ErrorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ve.Message
	}

	if errors.Is(err, domain.ErrTooManyAttempts) {
		return http.StatusTooManyRequests, domain.ErrTooManyAttempts.Message
	}
	var ae *domain.AuthenticationError
	if errors.As(err, &ae) {
		return http.StatusUnauthorized, ae.Message
	}

	var de *domain.DownstreamError
	if errors.As(err, &de) {
		return resolveDownstream(de, log, c)
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}

// resolveDownstream keeps a directory 4xx visible to the caller. Transport
// failures and directory 5xx become gateway errors.
func resolveDownstream(de *domain.DownstreamError, log zerolog.Logger, c echo.Context) (int, string) {
	if de.StatusCode >= 400 && de.StatusCode < 500 {
		msg := de.Message
		if msg == "" {
			msg = http.StatusText(de.StatusCode)
		}
		return de.StatusCode, msg
	}

	log.Error().
		Err(de).
		Str("operation", de.Op).
		Int("downstream_status", de.StatusCode).
		Str("path", c.Path()).
		Msg("user directory failure")

	if de.Timeout {
		return http.StatusGatewayTimeout, "user directory timed out"
	}
	return http.StatusBadGateway, "user directory unavailable"
}
