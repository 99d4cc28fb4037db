package handler

import "time"

type registerRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"`
}

// registerResponse never carries the password or its hash.
type registerResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// loginRequest is passed through as is. A blank username is answered by the
// directory lookup and a blank password by the login check.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type introspectRequest struct {
	Token string `json:"token"`
}

// introspectResponse follows the RFC 7662 shape. Inactive tokens carry no
// other fields and no reason.
type introspectResponse struct {
	Active   bool   `json:"active"`
	Subject  string `json:"sub,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	Expires  int64  `json:"exp,omitempty"`
}

type principalResponse struct {
	Subject  string `json:"sub"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// ErrorResponse is the canonical error envelope for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

func expiresUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
