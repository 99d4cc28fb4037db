// Package token issues and validates HS256-signed session tokens.
//
// Tokens are standard compact JWS values:
//
//	base64url(header) . base64url(payload) . base64url(HMAC-SHA256(header.payload))
//
// The payload carries sub, username, role, iat and exp. Validation checks the
// structure first, then the signature, then expiry, and only then reads claims.
package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/incidenthub/auth-gateway/internal/core/domain"
	"github.com/incidenthub/auth-gateway/internal/core/ports"
)

// MinKeyLength is the shortest accepted HMAC-SHA256 key, in bytes (256 bits).
const MinKeyLength = 32

var errMissingClaims = errors.New("token: missing subject or role")

// sessionClaims is the JSON payload of a session token.
type sessionClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Codec signs and parses session tokens with a single immutable key. It has no
// mutable state after construction and is safe for concurrent use.
type Codec struct {
	key    []byte
	now    func() time.Time
	parser *jwt.Parser
}

// Option customises a Codec.
type Option func(*Codec)

// WithClock overrides the time source used for iat/exp and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec returns a Codec for key. A key shorter than MinKeyLength is a
// configuration error.
func NewCodec(key []byte, opts ...Option) (*Codec, error) {
	if len(key) < MinKeyLength {
		return nil, &domain.ConfigurationError{
			Field:   "JWT_SECRET",
			Message: fmt.Sprintf("signing key must be at least %d bytes for HS256, got %d", MinKeyLength, len(key)),
		}
	}

	c := &Codec{
		key: append([]byte(nil), key...),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)
	return c, nil
}

var _ ports.TokenCodec = (*Codec)(nil)

// Issue signs a token for subjectID. iat is the current second and exp is
// iat+ttl, with ttl truncated to whole seconds.
func (c *Codec) Issue(subjectID string, claims ports.TokenClaims, ttl time.Duration) (string, error) {
	if subjectID == "" {
		return "", errors.New("token: subject is required")
	}
	if !claims.Role.Valid() {
		return "", fmt.Errorf("token: %w", domain.ErrInvalidRole)
	}
	ttl = ttl.Truncate(time.Second)
	if ttl <= 0 {
		return "", fmt.Errorf("token: ttl must be at least one second")
	}

	issuedAt := c.now().UTC().Truncate(time.Second)
	payload := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
		Username: claims.Username,
		Role:     string(claims.Role),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Validate verifies tokenString and returns its claims. Every failure is a
// *domain.TokenRejection.
func (c *Codec) Validate(tokenString string) (domain.Claims, error) {
	var payload sessionClaims
	if _, err := c.parser.ParseWithClaims(tokenString, &payload, c.keyFunc); err != nil {
		rej := classify(err)
		if rej.Reason == domain.RejectMalformed && onlySignatureUndecodable(tokenString) {
			rej.Reason = domain.RejectInvalidSignature
		}
		return domain.Claims{}, rej
	}

	role, ok := domain.ParseRole(payload.Role)
	if payload.Subject == "" || !ok {
		return domain.Claims{}, &domain.TokenRejection{Reason: domain.RejectMalformed, Err: errMissingClaims}
	}

	out := domain.Claims{
		Subject:  payload.Subject,
		Username: payload.Username,
		Role:     role,
	}
	if payload.IssuedAt != nil {
		out.IssuedAt = payload.IssuedAt.Time.UTC()
	}
	if payload.ExpiresAt != nil {
		out.ExpiresAt = payload.ExpiresAt.Time.UTC()
	}
	return out, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return c.key, nil
}

// onlySignatureUndecodable reports whether header and payload are well formed
// JSON segments while the signature segment is not strict base64url. jwt
// reports that case as malformed, but the bytes at fault are signature bytes.
func onlySignatureUndecodable(tokenString string) bool {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return false
	}
	enc := base64.RawURLEncoding.Strict()
	for _, seg := range parts[:2] {
		raw, err := enc.DecodeString(seg)
		if err != nil || !json.Valid(raw) {
			return false
		}
	}
	_, err := enc.DecodeString(parts[2])
	return err != nil
}

// classify maps jwt parse errors onto rejection reasons. The parser verifies
// the signature before any claim, so an expired token with a bad signature is
// reported as InvalidSignature.
func classify(err error) *domain.TokenRejection {
	reason := domain.RejectMalformed
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		reason = domain.RejectMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		reason = domain.RejectInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		reason = domain.RejectExpired
	}
	return &domain.TokenRejection{Reason: reason, Err: err}
}
