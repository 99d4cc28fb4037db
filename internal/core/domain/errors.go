package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports client input that the caller can correct.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// AuthenticationError reports a failed login. Message is safe to return to
// the caller as-is.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

var (
	ErrInvalidUserData = &ValidationError{Message: "Invalid user data"}
	ErrInvalidRole     = &ValidationError{Message: "Invalid role"}
	ErrEmptyPassword   = &ValidationError{Message: "Password cannot be empty"}
	ErrPasswordTooLong = &ValidationError{Message: "Password is too long"}

	ErrUserNotFound       = &AuthenticationError{Message: "User not found"}
	ErrInvalidCredentials = &AuthenticationError{Message: "Invalid credentials"}
	ErrTooManyAttempts    = &AuthenticationError{Message: "Too many failed login attempts"}
)

// ErrIdentityNotFound is returned by directory adapters when the lookup
// answered 404. The service translates it into ErrUserNotFound.
var ErrIdentityNotFound = errors.New("identity not found")

// DownstreamError wraps a failed call to the identity directory. StatusCode is
// zero when no HTTP response was received.
type DownstreamError struct {
	Op         string
	StatusCode int
	Message    string
	Timeout    bool
	Err        error
}

func (e *DownstreamError) Error() string {
	switch {
	case e.StatusCode > 0 && e.Message != "":
		return fmt.Sprintf("directory %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode > 0:
		return fmt.Sprintf("directory %s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("directory %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("directory %s: unavailable", e.Op)
	}
}

func (e *DownstreamError) Unwrap() error { return e.Err }

// ConfigurationError is fatal at startup.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// RejectionReason classifies why a token failed validation.
type RejectionReason string

const (
	RejectMalformed        RejectionReason = "malformed"
	RejectInvalidSignature RejectionReason = "invalid_signature"
	RejectExpired          RejectionReason = "expired"
)

// TokenRejection is returned by token validation. The reason never leaves the
// process; callers collapse it to "unauthenticated".
type TokenRejection struct {
	Reason RejectionReason
	Err    error
}

func (e *TokenRejection) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token rejected (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("token rejected (%s)", e.Reason)
}

func (e *TokenRejection) Unwrap() error { return e.Err }

// Is matches any TokenRejection with the same reason, so callers can write
// errors.Is(err, &TokenRejection{Reason: RejectExpired}).
func (e *TokenRejection) Is(target error) bool {
	t, ok := target.(*TokenRejection)
	return ok && t.Reason == e.Reason
}

// RejectionReasonOf extracts the reason from err, if it is a TokenRejection.
func RejectionReasonOf(err error) (RejectionReason, bool) {
	var tr *TokenRejection
	if errors.As(err, &tr) {
		return tr.Reason, true
	}
	return "", false
}
