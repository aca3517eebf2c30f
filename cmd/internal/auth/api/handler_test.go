package authapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/cmd/identity"
	"authgate/cmd/internal/auth/authz"
	"authgate/cmd/internal/auth/refresh"
	"authgate/cmd/internal/auth/session"
	"authgate/cmd/security/password"
)

const strongPassword = "Very-Strong-Password-1!"

type testServer struct {
	*httptest.Server
	users *identity.MemoryStore
}

func newTestServer(t *testing.T, cfg Config) testServer {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	pw := password.DefaultConfig()
	pw.Params.MemoryKiB = 8 * 1024
	pw.Params.Iterations = 1
	pw.Params.Parallelism = 1

	users := identity.NewMemoryStore()
	svc := identity.NewService(users, pw, identity.WithRoleSelfAssign(true))
	signer := newTestSigner(t)

	store, err := refresh.NewStore(refresh.NewMemoryBackend(nil), refresh.Config{TTL: time.Hour})
	require.NoError(t, err)

	orch, err := session.NewOrchestrator(svc, users, signer, store)
	require.NoError(t, err)

	h, err := NewHandler(log, cfg, orch, svc)
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("/api/v1/app/admin", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "Admin response data")
	})

	srv := httptest.NewServer(Protect(mux, NewAuthenticator(signer, users, log, nil), authz.DefaultPolicy()))
	t.Cleanup(srv.Close)
	return testServer{Server: srv, users: users}
}

func (ts testServer) do(t *testing.T, method, path string, body any, bearer string) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()

	out, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, out
}

func TestAuthAPI_FullFlow(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, DefaultConfig())

	status, body := ts.do(t, http.MethodPost, "/api/v1/auth/register", registerRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: strongPassword,
	}, "")
	require.Equal(t, http.StatusCreated, status, string(body))
	var reg userResponse
	require.NoError(t, json.Unmarshal(body, &reg))
	assert.Equal(t, []string{"ROLE_USER"}, reg.Roles)

	status, body = ts.do(t, http.MethodPost, "/api/v1/auth/signin", signinRequest{Username: "alice", Password: strongPassword}, "")
	require.Equal(t, http.StatusOK, status, string(body))

	var login signinResponse
	require.NoError(t, json.Unmarshal(body, &login))
	assert.Equal(t, reg.ID, login.ID)
	assert.Equal(t, "alice", login.Username)
	assert.Equal(t, "alice@example.com", login.Email)
	assert.Equal(t, []string{"ROLE_USER"}, login.Roles)
	assert.NotEmpty(t, login.AccessToken)
	assert.NotEmpty(t, login.RefreshToken)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	for _, k := range []string{"id", "accessToken", "refreshToken", "username", "email", "roles"} {
		assert.Contains(t, raw, k)
	}

	status, body = ts.do(t, http.MethodGet, "/api/v1/auth/me", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, status, string(body))

	status, _ = ts.do(t, http.MethodGet, "/api/v1/app/admin", nil, login.AccessToken)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = ts.do(t, http.MethodPost, "/api/v1/auth/refresh-token", refreshRequest{RefreshToken: login.RefreshToken}, "")
	require.Equal(t, http.StatusOK, status, string(body))
	var refreshed refreshResponse
	require.NoError(t, json.Unmarshal(body, &refreshed))
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	status, body = ts.do(t, http.MethodPost, "/api/v1/auth/logout", nil, refreshed.AccessToken)
	require.Equal(t, http.StatusOK, status, string(body))
	var out messageResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "User logout. Username is: alice", out.Message)

	for _, tok := range []string{login.RefreshToken, refreshed.RefreshToken} {
		status, body = ts.do(t, http.MethodPost, "/api/v1/auth/refresh-token", refreshRequest{RefreshToken: tok}, "")
		assert.Equal(t, http.StatusForbidden, status)
		var em errorMessage
		require.NoError(t, json.Unmarshal(body, &em))
		assert.Equal(t, "Refresh token not found", em.Message)
		assert.Equal(t, "uri=/api/v1/auth/refresh-token", em.Description)
	}
}

func TestAuthAPI_SigninBadCredentials(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, DefaultConfig())
	status, _ := ts.do(t, http.MethodPost, "/api/v1/auth/register", registerRequest{
		Username: "bob", Email: "bob@example.com", Password: strongPassword,
	}, "")
	require.Equal(t, http.StatusCreated, status)

	for _, req := range []signinRequest{
		{Username: "bob", Password: "Wrong-Password-1!"},
		{Username: "nobody", Password: strongPassword},
	} {
		status, body := ts.do(t, http.MethodPost, "/api/v1/auth/signin", req, "")
		assert.Equal(t, http.StatusUnauthorized, status)

		var sb statusBody
		require.NoError(t, json.Unmarshal(body, &sb))
		assert.Equal(t, statusBody{Status: 401, Error: "Unauthorized", Message: "Bad credentials", Path: "/api/v1/auth/signin"}, sb)
	}
}

func TestAuthAPI_RegisterConflict(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, DefaultConfig())
	req := registerRequest{Username: "carol", Email: "carol@example.com", Password: strongPassword}

	status, _ := ts.do(t, http.MethodPost, "/api/v1/auth/register", req, "")
	require.Equal(t, http.StatusCreated, status)

	status, body := ts.do(t, http.MethodPost, "/api/v1/auth/register", req, "")
	assert.Equal(t, http.StatusBadRequest, status)
	var em errorMessage
	require.NoError(t, json.Unmarshal(body, &em))
	assert.Equal(t, "Username already exists: carol", em.Message)
}

func TestAuthAPI_RoleGatedRoute(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, DefaultConfig())
	status, _ := ts.do(t, http.MethodPost, "/api/v1/auth/register", registerRequest{
		Username: "root", Email: "root@example.com", Password: strongPassword, Roles: []string{"ROLE_ADMIN"},
	}, "")
	require.Equal(t, http.StatusCreated, status)

	status, body := ts.do(t, http.MethodPost, "/api/v1/auth/signin", signinRequest{Username: "root", Password: strongPassword}, "")
	require.Equal(t, http.StatusOK, status)
	var login signinResponse
	require.NoError(t, json.Unmarshal(body, &login))
	assert.Equal(t, []string{"ROLE_ADMIN"}, login.Roles)

	status, body = ts.do(t, http.MethodGet, "/api/v1/app/admin", nil, login.AccessToken)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Admin response data", string(body))

	status, _ = ts.do(t, http.MethodGet, "/api/v1/app/admin", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = ts.do(t, http.MethodGet, "/api/v1/app/admin", nil, login.AccessToken+"x")
	assert.Equal(t, http.StatusUnauthorized, status, "a bad token degrades to anonymous")
}

func TestAuthAPI_LogoutRequiresPrincipal(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, DefaultConfig())
	status, body := ts.do(t, http.MethodPost, "/api/v1/auth/logout", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	var sb statusBody
	require.NoError(t, json.Unmarshal(body, &sb))
	assert.Equal(t, "/api/v1/auth/logout", sb.Path)
}

func TestAuthAPI_InvalidBodies(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, DefaultConfig())
	for _, path := range []string{"/api/v1/auth/signin", "/api/v1/auth/refresh-token", "/api/v1/auth/register"} {
		req, err := http.NewRequest(http.MethodPost, ts.URL+path, bytes.NewBufferString(`{"unknown":1}`))
		require.NoError(t, err)
		res, err := ts.Client().Do(req)
		require.NoError(t, err)
		_ = res.Body.Close()
		assert.Equal(t, http.StatusBadRequest, res.StatusCode, path)
	}

	status, _ := ts.do(t, http.MethodGet, "/api/v1/auth/signin", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, status)
}

func TestAuthAPI_SigninRateLimited(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 1
	cfg.RateLimitBurst = 2
	ts := newTestServer(t, cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		status, _ := ts.do(t, http.MethodPost, "/api/v1/auth/signin", signinRequest{Username: "x", Password: "y"}, "")
		codes = append(codes, status)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
}
