package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmateus/go-user-accounts/config"
	"github.com/nmateus/go-user-accounts/internal/api"
	"github.com/nmateus/go-user-accounts/internal/api/auth"
	"github.com/nmateus/go-user-accounts/internal/api/org"
	"github.com/nmateus/go-user-accounts/internal/api/user"
	"github.com/nmateus/go-user-accounts/internal/router"
	"github.com/nmateus/go-user-accounts/internal/types"
)

// memStore is an in-memory stand-in for the Postgres repositories so the full
// HTTP stack can be exercised without a database.
type memStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*types.User
}

func newMemStore() *memStore {
	return &memStore{users: map[uuid.UUID]*types.User{}}
}

func (s *memStore) CreateUser(_ context.Context, u *types.User) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return nil, types.ErrConflict
		}
	}
	stored := *u
	stored.ID = uuid.New()
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	s.users[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

func (s *memStore) GetUserByID(_ context.Context, userID uuid.UUID) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, types.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *memStore) GetUserByUsernameOrEmail(_ context.Context, username, email string) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, types.ErrNotFound
}

func (s *memStore) UpdateRefreshToken(_ context.Context, userID uuid.UUID, token *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return types.ErrNotFound
	}
	u.RefreshToken = token
	u.UpdatedAt = time.Now()
	return nil
}

func (s *memStore) UpdatePassword(_ context.Context, userID uuid.UUID, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return types.ErrNotFound
	}
	u.PasswordHash = newHash
	u.UpdatedAt = time.Now()
	return nil
}

func (s *memStore) GetAllUsers(_ context.Context) ([]types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.User
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, nil
}

func (s *memStore) UpdateAccount(_ context.Context, userID uuid.UUID, params types.UpdateAccountParams) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, types.ErrNotFound
	}
	if params.FullName != nil {
		u.FullName = *params.FullName
	}
	if params.Email != nil {
		u.Email = *params.Email
	}
	if params.Company != nil {
		u.Company = params.Company
	}
	if params.Zone != nil {
		u.Zone = params.Zone
	}
	if params.Branch != nil {
		u.Branch = params.Branch
	}
	if params.Division != nil {
		u.Division = params.Division
	}
	if params.Role != nil {
		u.Role = params.Role
	}
	if params.Lob != nil {
		u.Lob = params.Lob
	}
	u.UpdatedAt = time.Now()
	copied := *u
	return &copied, nil
}

func (s *memStore) DeleteUser(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return types.ErrNotFound
	}
	delete(s.users, userID)
	return nil
}

func (s *memStore) ListCompanies(context.Context) ([]types.LookupItem, error) {
	return []types.LookupItem{{ID: uuid.New(), Name: "Acme"}}, nil
}
func (s *memStore) ListZones(context.Context) ([]types.LookupItem, error)     { return nil, nil }
func (s *memStore) ListBranches(context.Context) ([]types.LookupItem, error)  { return nil, nil }
func (s *memStore) ListDivisions(context.Context) ([]types.LookupItem, error) { return nil, nil }
func (s *memStore) ListLinesOfBusiness(context.Context) ([]types.LookupItem, error) {
	return nil, nil
}

func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &config.Config{Mode: "test"}
	cfg.JWT = config.JWTConfig{
		SecretKey:        "e2e-access-secret",
		RefreshSecretKey: "e2e-refresh-secret",
		Issuer:           "go-user-accounts",
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  7 * 24 * time.Hour,
	}
	cfg.Cors.AllowedOrigins = []string{"*"}

	store := newMemStore()
	issuer := auth.NewTokenIssuer(cfg.JWT)
	authService := auth.NewAuthService(store, issuer, logger)
	userService := user.NewUserService(store, logger)

	r := router.SetupRouter(&router.Config{
		AuthHandler:            auth.NewAuthHandlerImpl(authService, cfg, logger),
		UserHandler:            user.NewHandlerImpl(userService, logger),
		OrgHandler:             org.NewHandlerImpl(store, logger),
		AuthenticateMiddleware: auth.Authenticate(logger, issuer, authService),
		AllowedOrigins:         cfg.Cors.AllowedOrigins,
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func newClientWithJar(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}
}

func postJSON(t *testing.T, client *http.Client, url string, body any) (*http.Response, api.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := client.Post(url, "application/json", &buf)
	require.NoError(t, err)
	return resp, readEnvelope(t, resp)
}

func readEnvelope(t *testing.T, resp *http.Response) api.Response {
	t.Helper()
	defer resp.Body.Close()
	var envelope api.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope
}

func TestUserLifecycle(t *testing.T) {
	server := startTestServer(t)
	client := newClientWithJar(t)

	registerBody := map[string]string{
		"fullName": "E2E Tester",
		"username": "e2etester",
		"email":    "e2e@example.com",
		"password": "initial-password",
		"company":  "Acme",
	}

	t.Run("Register", func(t *testing.T) {
		resp, envelope := postJSON(t, client, server.URL+"/api/v1/users/register", registerBody)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.True(t, envelope.Success)
	})

	t.Run("DuplicateRegisterConflicts", func(t *testing.T) {
		resp, envelope := postJSON(t, client, server.URL+"/api/v1/users/register", registerBody)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.False(t, envelope.Success)
	})

	t.Run("ProtectedRouteRequiresLogin", func(t *testing.T) {
		resp, err := client.Get(server.URL + "/api/v1/users/current-user")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	var firstRefreshToken string

	t.Run("Login", func(t *testing.T) {
		resp, envelope := postJSON(t, client, server.URL+"/api/v1/users/login", map[string]string{
			"email":    "e2e@example.com",
			"password": "initial-password",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.True(t, envelope.Success)

		data, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		var loginData auth.LoginResponse
		require.NoError(t, json.Unmarshal(data, &loginData))
		require.NotEmpty(t, loginData.RefreshToken)
		firstRefreshToken = loginData.RefreshToken
	})

	t.Run("CurrentUser", func(t *testing.T) {
		resp, err := client.Get(server.URL + "/api/v1/users/current-user")
		require.NoError(t, err)
		envelope := readEnvelope(t, resp)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, envelope.Success)
	})

	t.Run("UpdateAccount", func(t *testing.T) {
		body, err := json.Marshal(map[string]string{"fullName": "Renamed Tester"})
		require.NoError(t, err)
		req, err := http.NewRequest(http.MethodPatch,
			server.URL+"/api/v1/users/update-account", bytes.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		require.NoError(t, err)
		envelope := readEnvelope(t, resp)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, envelope.Success)
	})

	t.Run("OrgLookups", func(t *testing.T) {
		resp, err := client.Get(server.URL + "/api/v1/org/companies")
		require.NoError(t, err)
		envelope := readEnvelope(t, resp)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, envelope.Success)
	})

	var rotatedRefreshToken string

	t.Run("RefreshRotatesTokens", func(t *testing.T) {
		resp, envelope := postJSON(t, client, server.URL+"/api/v1/users/refresh-token", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.True(t, envelope.Success)

		data, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		var pair auth.TokenPairResponse
		require.NoError(t, json.Unmarshal(data, &pair))
		require.NotEmpty(t, pair.RefreshToken)
		assert.NotEqual(t, firstRefreshToken, pair.RefreshToken)
		rotatedRefreshToken = pair.RefreshToken
	})

	t.Run("ReplayedRefreshTokenRejected", func(t *testing.T) {
		// stale token via body, on a client without the rotated cookies
		bare := &http.Client{Timeout: 10 * time.Second}
		resp, envelope := postJSON(t, bare, server.URL+"/api/v1/users/refresh-token",
			map[string]string{"refreshToken": firstRefreshToken})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Refresh token is expired or used", envelope.Message)
	})

	t.Run("ChangePassword", func(t *testing.T) {
		resp, envelope := postJSON(t, client, server.URL+"/api/v1/users/change-password", map[string]string{
			"oldPassword": "initial-password",
			"newPassword": "rotated-password",
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, envelope.Success)
	})

	t.Run("WrongOldPasswordRejected", func(t *testing.T) {
		resp, envelope := postJSON(t, client, server.URL+"/api/v1/users/change-password", map[string]string{
			"oldPassword": "initial-password",
			"newPassword": "whatever",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Invalid old password", envelope.Message)
	})

	t.Run("Logout", func(t *testing.T) {
		resp, envelope := postJSON(t, client, server.URL+"/api/v1/users/logout", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, envelope.Success)
	})

	t.Run("RefreshAfterLogoutRejected", func(t *testing.T) {
		// logout cleared the cookies, so a bare call has nothing to present
		resp, err := client.Post(server.URL+"/api/v1/users/refresh-token", "application/json", nil)
		require.NoError(t, err)
		envelope := readEnvelope(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.False(t, envelope.Success)

		// and the token that was live before logout no longer matches anything
		bare := &http.Client{Timeout: 10 * time.Second}
		resp2, envelope2 := postJSON(t, bare, server.URL+"/api/v1/users/refresh-token",
			map[string]string{"refreshToken": rotatedRefreshToken})
		assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
		assert.Equal(t, "Refresh token is expired or used", envelope2.Message)
	})

	t.Run("LoginWithNewPassword", func(t *testing.T) {
		resp, envelope := postJSON(t, client, server.URL+"/api/v1/users/login", map[string]string{
			"username": "e2etester",
			"password": "rotated-password",
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, envelope.Success)
	})
}
