package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/incidenthub/auth-gateway/internal/core/service"
	"github.com/incidenthub/auth-gateway/internal/infrastructure/directory"
	"github.com/incidenthub/auth-gateway/internal/infrastructure/password"
	"github.com/incidenthub/auth-gateway/internal/infrastructure/token"
)

// fakeDirectory emulates the user directory's REST surface.
type fakeDirectory struct {
	mu    sync.Mutex
	users map[string]map[string]any
}

func (f *fakeDirectory) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/users":
		var rec map[string]any
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		name, _ := rec["username"].(string)
		if _, exists := f.users[name]; exists {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"Username already exists"}`))
			return
		}
		f.users[name] = rec
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rec)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/users/username/"):
		rec, ok := f.users[strings.TrimPrefix(r.URL.Path, "/api/users/username/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rec)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type testServer struct {
	t       *testing.T
	handler http.Handler
}

func newTestServer(t *testing.T, mutate ...func(*Deps)) *testServer {
	t.Helper()
	dir := httptest.NewServer(&fakeDirectory{users: make(map[string]map[string]any)})
	t.Cleanup(dir.Close)

	codec, err := token.NewCodec([]byte("router-test-signing-key-32-bytes"))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	client := directory.New(dir.URL, time.Second, zerolog.Nop())
	svc := service.NewAuthService(client, password.NewBcryptHasher(bcrypt.MinCost), codec, time.Hour, zerolog.Nop())

	deps := Deps{
		AuthService: svc,
		Tokens:      codec,
		Metrics:     prometheus.NewRegistry(),
		Log:         zerolog.Nop(),
	}
	for _, m := range mutate {
		m(&deps)
	}
	e := NewRouter(deps)
	return &testServer{t: t, handler: e}
}

func (s *testServer) do(method, path, body, bearer string) (int, map[string]any) {
	s.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			s.t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code, out
}

func (s *testServer) register(username, role string) {
	s.t.Helper()
	code, body := s.do(http.MethodPost, "/api/auth/register",
		`{"username":"`+username+`","email":"`+username+`@example.com","password":"password123","role":"`+role+`"}`, "")
	if code != http.StatusOK {
		s.t.Fatalf("register %s: expected 200, got %d %v", username, code, body)
	}
}

func (s *testServer) login(username string) string {
	s.t.Helper()
	code, body := s.do(http.MethodPost, "/api/auth/login", `{"username":"`+username+`","password":"password123"}`, "")
	if code != http.StatusOK {
		s.t.Fatalf("login %s: expected 200, got %d %v", username, code, body)
	}
	tok, _ := body["token"].(string)
	if tok == "" {
		s.t.Fatalf("login %s: empty token", username)
	}
	return tok
}

func TestRouter_RegisterAndLogin(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(http.MethodPost, "/api/auth/register",
		`{"username":"testuser","email":"test@example.com","password":"password123","role":"OPERATOR"}`, "")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", code, body)
	}
	if body["username"] != "testuser" || body["email"] != "test@example.com" || body["role"] != "OPERATOR" {
		t.Fatalf("unexpected register payload: %v", body)
	}
	if _, ok := body["password"]; ok {
		t.Fatalf("register response leaked password field")
	}

	tok := s.login("testuser")

	code, body = s.do(http.MethodGet, "/api/auth/me", "", tok)
	if code != http.StatusOK || body["username"] != "testuser" || body["role"] != "OPERATOR" {
		t.Fatalf("unexpected /me: %d %v", code, body)
	}
}

func TestRouter_RegisterErrors(t *testing.T) {
	s := newTestServer(t)
	s.register("taken", "ADMIN")

	tests := []struct {
		name string
		body string
		code int
		msg  string
	}{
		{"invalid role", `{"username":"a","email":"a@example.com","password":"p","role":"INVALID"}`, http.StatusBadRequest, "Invalid role"},
		{"missing username", `{"email":"a@example.com","password":"p","role":"ADMIN"}`, http.StatusBadRequest, "Invalid user data"},
		{"duplicate", `{"username":"taken","email":"t@example.com","password":"p","role":"ADMIN"}`, http.StatusConflict, "Username already exists"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := s.do(http.MethodPost, "/api/auth/register", tt.body, "")
			if code != tt.code || body["error"] != tt.msg {
				t.Fatalf("expected %d %q, got %d %v", tt.code, tt.msg, code, body)
			}
		})
	}
}

func TestRouter_LoginErrors(t *testing.T) {
	s := newTestServer(t)
	s.register("testuser", "OPERATOR")

	tests := []struct {
		name string
		body string
		code int
		msg  string
	}{
		{"wrong password", `{"username":"testuser","password":"wrongpassword"}`, http.StatusUnauthorized, "Invalid credentials"},
		{"unknown user", `{"username":"ghost","password":"password123"}`, http.StatusUnauthorized, "User not found"},
		{"empty password", `{"username":"testuser","password":""}`, http.StatusBadRequest, "Password cannot be empty"},
		{"missing username", `{"password":"password123"}`, http.StatusUnauthorized, "User not found"},
		{"blank username and password", `{"username":"","password":""}`, http.StatusBadRequest, "Password cannot be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := s.do(http.MethodPost, "/api/auth/login", tt.body, "")
			if code != tt.code || body["error"] != tt.msg {
				t.Fatalf("expected %d %q, got %d %v", tt.code, tt.msg, code, body)
			}
		})
	}
}

func TestRouter_ProtectedRoutes(t *testing.T) {
	s := newTestServer(t)
	s.register("admin", "ADMIN")
	s.register("operator", "OPERATOR")
	adminTok := s.login("admin")
	opTok := s.login("operator")

	if code, body := s.do(http.MethodGet, "/api/auth/me", "", ""); code != http.StatusUnauthorized || body["error"] != "unauthorized" {
		t.Fatalf("expected 401 unauthorized, got %d %v", code, body)
	}
	if code, _ := s.do(http.MethodGet, "/api/auth/me", "", "garbage"); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", code)
	}

	introspect := `{"token":"` + opTok + `"}`
	if code, _ := s.do(http.MethodPost, "/api/auth/introspect", introspect, opTok); code != http.StatusForbidden {
		t.Fatalf("expected 403 for operator, got %d", code)
	}
	code, body := s.do(http.MethodPost, "/api/auth/introspect", introspect, adminTok)
	if code != http.StatusOK || body["active"] != true || body["username"] != "operator" {
		t.Fatalf("unexpected introspection: %d %v", code, body)
	}

	code, body = s.do(http.MethodPost, "/api/auth/introspect", `{"token":"`+opTok+`x"}`, adminTok)
	if code != http.StatusOK || body["active"] != false || len(body) != 1 {
		t.Fatalf("expected bare inactive response, got %d %v", code, body)
	}
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)
	if code, body := s.do(http.MethodGet, "/health", "", ""); code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected liveness: %d %v", code, body)
	}
	if code, _ := s.do(http.MethodGet, "/health/ready", "", ""); code != http.StatusOK {
		t.Fatalf("unexpected readiness: %d", code)
	}
	if code, _ := s.do(http.MethodGet, "/metrics", "", ""); code != http.StatusOK {
		t.Fatalf("unexpected metrics status: %d", code)
	}
}

func TestRouter_RateLimit(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.RateLimit = RateLimit{RPS: 0.001, Burst: 1} })

	if code, _ := s.do(http.MethodPost, "/api/auth/login", `{"username":"ghost","password":"x"}`, ""); code != http.StatusUnauthorized {
		t.Fatalf("expected first attempt to reach the service, got %d", code)
	}
	code, body := s.do(http.MethodPost, "/api/auth/login", `{"username":"ghost","password":"x"}`, "")
	if code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d %v", code, body)
	}
	if code, _ := s.do(http.MethodGet, "/health", "", ""); code != http.StatusOK {
		t.Fatalf("health must not be rate limited, got %d", code)
	}
}
