package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incidenthub/auth-gateway/internal/core/domain"
)

func newTestIdentity() *domain.Identity {
	return &domain.Identity{
		ID:           "8d1c4a52-6b0e-4c3e-9a5f-1f2e3d4c5b6a",
		Username:     "testuser",
		Email:        "test@example.com",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		Role:         domain.RoleOperator,
		CreatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCreate_PostsRecordAndDecodesEcho(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/users", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(got)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, zerolog.Nop())
	in := newTestIdentity()

	saved, err := c.Create(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, in.ID, got["id"])
	assert.Equal(t, "testuser", got["username"])
	assert.Equal(t, "test@example.com", got["email"])
	assert.Equal(t, in.PasswordHash, got["password"])
	assert.Equal(t, "OPERATOR", got["role"])
	assert.Equal(t, "2026-03-01T12:00:00Z", got["createdAt"])

	assert.Equal(t, in.ID, saved.ID)
	assert.Equal(t, in.Username, saved.Username)
	assert.Equal(t, domain.RoleOperator, saved.Role)
	assert.True(t, in.CreatedAt.Equal(saved.CreatedAt))
}

func TestCreate_ErrorStatusPreservesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Username already exists"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, zerolog.Nop())
	_, err := c.Create(context.Background(), newTestIdentity())

	var de *domain.DownstreamError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, http.StatusBadRequest, de.StatusCode)
	assert.Equal(t, "Username already exists", de.Message)
	assert.Equal(t, opCreate, de.Op)
}

func TestCreate_NotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, zerolog.Nop())
	_, err := c.Create(context.Background(), newTestIdentity())
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestFindByUsername_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/users/username/testuser", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "8d1c4a52-6b0e-4c3e-9a5f-1f2e3d4c5b6a",
			"username": "testuser",
			"email": "test@example.com",
			"password": "$2a$10$hash",
			"role": "ADMIN",
			"createdAt": "2026-03-01T12:00:00Z"
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second, zerolog.Nop())
	u, err := c.FindByUsername(context.Background(), "testuser")
	require.NoError(t, err)

	assert.Equal(t, "8d1c4a52-6b0e-4c3e-9a5f-1f2e3d4c5b6a", u.ID)
	assert.Equal(t, "$2a$10$hash", u.PasswordHash)
	assert.Equal(t, domain.RoleAdmin, u.Role)
}

func TestFindByUsername_EscapesPath(t *testing.T) {
	var rawPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, zerolog.Nop())
	_, _ = c.FindByUsername(context.Background(), "a/b c")
	assert.Equal(t, "/api/users/username/a%2Fb%20c", rawPath)
}

func TestFindByUsername_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, zerolog.Nop())
	_, err := c.FindByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)
}

func TestFindByUsername_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"database down"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, zerolog.Nop())
	_, err := c.FindByUsername(context.Background(), "testuser")

	var de *domain.DownstreamError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, http.StatusInternalServerError, de.StatusCode)
	assert.Equal(t, "database down", de.Message)
	assert.False(t, errors.Is(err, domain.ErrIdentityNotFound))
}

func TestFindByUsername_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url, time.Second, zerolog.Nop())
	_, err := c.FindByUsername(context.Background(), "testuser")

	var de *domain.DownstreamError
	require.ErrorAs(t, err, &de)
	assert.Zero(t, de.StatusCode)
	assert.Error(t, de.Err)
}

func TestFindByUsername_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(srv.URL, 50*time.Millisecond, zerolog.Nop())
	_, err := c.FindByUsername(context.Background(), "testuser")

	var de *domain.DownstreamError
	require.ErrorAs(t, err, &de)
	assert.Zero(t, de.StatusCode)
	assert.True(t, de.Timeout)
}

func TestFindByUsername_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, zerolog.Nop())
	_, err := c.FindByUsername(context.Background(), "testuser")

	var de *domain.DownstreamError
	require.ErrorAs(t, err, &de)
	assert.Zero(t, de.StatusCode)
}

func TestReadErrorMessage(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"error":"bad"}`, "bad"},
		{`{"message":"worse"}`, "worse"},
		{`{"error":"first","message":"second"}`, "first"},
		{"plain text\n", "plain text"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, readErrorMessage(strings.NewReader(tt.body)), "body %q", tt.body)
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	c := New(srv.URL, time.Second, zerolog.Nop())
	assert.NoError(t, c.Ping(context.Background()))

	srv.Close()
	assert.Error(t, c.Ping(context.Background()))
}
