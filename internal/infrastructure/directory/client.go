// Package directory is the HTTP adapter for the remote user directory
// service. The directory owns identity persistence; this gateway only
// creates records and looks them up by username.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/incidenthub/auth-gateway/internal/core/domain"
	"github.com/incidenthub/auth-gateway/internal/core/ports"
	"github.com/incidenthub/auth-gateway/internal/pkg/metrics"
)

const (
	DefaultTimeout = 5 * time.Second

	opCreate         = "create"
	opFindByUsername = "find_by_username"

	// maxErrorBody caps how much of a failed response is read for a message.
	maxErrorBody = 4 << 10
)

// userRecord is the directory's JSON representation of an identity.
type userRecord struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func toRecord(u *domain.Identity) userRecord {
	return userRecord{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Password:  u.PasswordHash,
		Role:      u.Role.String(),
		CreatedAt: u.CreatedAt.UTC(),
	}
}

func (r userRecord) toDomain() *domain.Identity {
	return &domain.Identity{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.Password,
		Role:         domain.Role(r.Role),
		CreatedAt:    r.CreatedAt,
	}
}

// Client implements ports.IdentityDirectory over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

var _ ports.IdentityDirectory = (*Client)(nil)

// New returns a client for the directory at baseURL. A non-positive timeout
// falls back to DefaultTimeout.
func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Create posts the identity and returns the record as echoed by the
// directory. A non-2xx answer is returned as a *domain.DownstreamError
// carrying the status and the directory's message.
func (c *Client) Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error) {
	body, err := json.Marshal(toRecord(identity))
	if err != nil {
		return nil, fmt.Errorf("directory create: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/users", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("directory create: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var rec userRecord
	if err := c.do(req, opCreate, &rec); err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

// FindByUsername fetches a single identity. A 404 maps to
// domain.ErrIdentityNotFound.
func (c *Client) FindByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	endpoint := c.baseURL + "/api/users/username/" + url.PathEscape(username)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("directory find: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var rec userRecord
	if err := c.do(req, opFindByUsername, &rec); err != nil {
		var de *domain.DownstreamError
		if errors.As(err, &de) && de.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", domain.ErrIdentityNotFound, username)
		}
		return nil, err
	}
	return rec.toDomain(), nil
}

// do executes req once and decodes a 2xx body into out.
func (c *Client) do(req *http.Request, op string, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.DirectoryRequestDuration.WithLabelValues(op, "error").Observe(time.Since(start).Seconds())
		c.log.Warn().Err(err).Str("operation", op).Msg("directory unreachable")
		return &domain.DownstreamError{Op: op, Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	metrics.DirectoryRequestDuration.
		WithLabelValues(op, strconv.Itoa(resp.StatusCode)).
		Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := readErrorMessage(resp.Body)
		c.log.Debug().Str("operation", op).Int("status", resp.StatusCode).Str("message", msg).Msg("directory returned error status")
		return &domain.DownstreamError{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.DownstreamError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// readErrorMessage extracts {"error": "..."} or {"message": "..."} from an
// error body, or falls back to the trimmed raw text.
func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(raw))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Ping reports whether the directory answers HTTP at all. Any response,
// including an error status, counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("directory ping: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("directory ping: %w", err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	return resp.Body.Close()
}
