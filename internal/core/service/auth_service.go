package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/incidenthub/auth-gateway/internal/core/domain"
	"github.com/incidenthub/auth-gateway/internal/core/ports"
	"github.com/incidenthub/auth-gateway/internal/pkg/metrics"
)

const defaultTokenTTL = 24 * time.Hour

// AuthService implements registration and login on top of the remote
// identity directory. It keeps no per-request state.
type AuthService struct {
	directory ports.IdentityDirectory
	hasher    ports.PasswordHasher
	verifier  *CredentialVerifier
	tokens    ports.TokenCodec
	tokenTTL  time.Duration
	throttle  ports.LoginThrottle
	audit     ports.AuditSink
	log       zerolog.Logger
	now       func() time.Time
	newID     func() string
}

// Option configures optional AuthService collaborators.
type Option func(*AuthService)

// WithLoginThrottle enables failed-login lockout.
func WithLoginThrottle(t ports.LoginThrottle) Option {
	return func(s *AuthService) { s.throttle = t }
}

// WithAuditSink sends register/login outcomes to sink.
func WithAuditSink(sink ports.AuditSink) Option {
	return func(s *AuthService) {
		if sink != nil {
			s.audit = sink
		}
	}
}

// WithClock overrides the time source for CreatedAt and audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

// WithIDGenerator overrides identity id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *AuthService) { s.newID = newID }
}

func NewAuthService(
	directory ports.IdentityDirectory,
	hasher ports.PasswordHasher,
	tokens ports.TokenCodec,
	tokenTTL time.Duration,
	log zerolog.Logger,
	opts ...Option,
) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	s := &AuthService{
		directory: directory,
		hasher:    hasher,
		verifier:  NewCredentialVerifier(hasher),
		tokens:    tokens,
		tokenTTL:  tokenTTL,
		audit:     ports.NopAuditSink{},
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.AuthService = (*AuthService)(nil)

// Register validates the request, hashes the password and asks the directory
// to create the identity. Directory failures are returned as-is and never
// retried: the create call has no dedup key.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error) {
	if isBlank(in.Username) || isBlank(in.Email) || isBlank(in.Password) {
		metrics.RegisterTotal.WithLabelValues("invalid_input").Inc()
		return nil, domain.ErrInvalidUserData
	}
	role, ok := domain.ParseRole(in.Role)
	if !ok {
		metrics.RegisterTotal.WithLabelValues("invalid_input").Inc()
		return nil, domain.ErrInvalidRole
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			metrics.RegisterTotal.WithLabelValues("invalid_input").Inc()
			return nil, err
		}
		metrics.RegisterTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("register: %w", err)
	}

	identity := &domain.Identity{
		ID:           s.newID(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}

	saved, err := s.directory.Create(ctx, identity)
	if err != nil {
		metrics.RegisterTotal.WithLabelValues("downstream_error").Inc()
		s.record(domain.EventRegister, in.Username, identity.ID, domain.OutcomeFailure, "downstream")
		s.log.Warn().Err(err).Str("username", in.Username).Msg("directory rejected registration")
		return nil, fmt.Errorf("register: %w", err)
	}
	if saved == nil {
		saved = identity
	}

	metrics.RegisterTotal.WithLabelValues("success").Inc()
	s.record(domain.EventRegister, saved.Username, saved.ID, domain.OutcomeSuccess, "")
	s.log.Info().Str("username", saved.Username).Str("role", saved.Role.String()).Msg("identity registered")

	return &ports.RegisterResult{
		Username: saved.Username,
		Email:    saved.Email,
		Role:     saved.Role,
	}, nil
}

// Login fetches the identity, verifies the password and issues a token.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	if in.Password == "" {
		metrics.LoginTotal.WithLabelValues("invalid_input").Inc()
		return nil, domain.ErrEmptyPassword
	}

	if s.locked(ctx, in.Username) {
		metrics.LoginTotal.WithLabelValues("locked").Inc()
		s.record(domain.EventLogin, in.Username, "", domain.OutcomeFailure, "locked")
		return nil, domain.ErrTooManyAttempts
	}

	identity, err := s.directory.FindByUsername(ctx, in.Username)
	if err != nil {
		if isLookupMiss(err) {
			s.failed(ctx, in.Username, "", "user_not_found")
			s.log.Debug().Err(err).Str("username", in.Username).Msg("login for unknown user")
			return nil, domain.ErrUserNotFound
		}
		metrics.LoginTotal.WithLabelValues("downstream_error").Inc()
		s.record(domain.EventLogin, in.Username, "", domain.OutcomeFailure, "downstream")
		s.log.Error().Err(err).Str("username", in.Username).Msg("directory lookup failed")
		return nil, fmt.Errorf("login: %w", err)
	}

	if !s.verifier.Verify(identity, in.Password) {
		s.failed(ctx, in.Username, identity.ID, "invalid_credentials")
		return nil, domain.ErrInvalidCredentials
	}

	if !identity.Role.Valid() {
		metrics.LoginTotal.WithLabelValues("error").Inc()
		s.log.Error().Str("username", identity.Username).Str("role", identity.Role.String()).Msg("identity carries unsupported role")
		return nil, fmt.Errorf("login: identity %s has unsupported role %q", identity.ID, identity.Role)
	}

	token, err := s.tokens.Issue(identity.ID, ports.TokenClaims{
		Username: identity.Username,
		Role:     identity.Role,
	}, s.tokenTTL)
	if err != nil {
		metrics.LoginTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login: issue token: %w", err)
	}

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, in.Username); err != nil {
			s.log.Warn().Err(err).Str("username", in.Username).Msg("failed to reset login throttle")
		}
	}

	metrics.LoginTotal.WithLabelValues("success").Inc()
	s.record(domain.EventLogin, identity.Username, identity.ID, domain.OutcomeSuccess, "")
	s.log.Info().Str("username", identity.Username).Str("sub", identity.ID).Msg("login succeeded")

	return &ports.LoginResult{Token: token}, nil
}

// locked consults the throttle. Backend errors fail open.
func (s *AuthService) locked(ctx context.Context, username string) bool {
	if s.throttle == nil {
		return false
	}
	locked, err := s.throttle.Locked(ctx, username)
	if err != nil {
		s.log.Warn().Err(err).Str("username", username).Msg("login throttle check failed, allowing attempt")
		return false
	}
	return locked
}

func (s *AuthService) failed(ctx context.Context, username, subjectID, reason string) {
	metrics.LoginTotal.WithLabelValues(reason).Inc()
	s.record(domain.EventLogin, username, subjectID, domain.OutcomeFailure, reason)
	if s.throttle == nil {
		return
	}
	if err := s.throttle.RecordFailure(ctx, username); err != nil {
		s.log.Warn().Err(err).Str("username", username).Msg("failed to record login failure")
	}
}

func (s *AuthService) record(kind domain.AuthEventKind, username, subjectID, outcome, reason string) {
	s.audit.Record(domain.AuthEvent{
		Kind:       kind,
		Username:   username,
		SubjectID:  subjectID,
		Outcome:    outcome,
		Reason:     reason,
		OccurredAt: s.now().UTC(),
	})
}

// isLookupMiss reports whether a FindByUsername error means the directory
// answered, but not with an identity: a 404 or any other HTTP error status.
// Transport failures are not misses.
func isLookupMiss(err error) bool {
	if errors.Is(err, domain.ErrIdentityNotFound) {
		return true
	}
	var de *domain.DownstreamError
	return errors.As(err, &de) && de.StatusCode > 0
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
