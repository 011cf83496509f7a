package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookswapapp/bookswap-server/internal/domain"
	"github.com/bookswapapp/bookswap-server/internal/ratelimit"
	"github.com/bookswapapp/bookswap-server/internal/service"
)

func TestRegisterEndpoint(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	resp := registerTestUser(t, server, "alice")
	assert.Equal(t, "alice", resp.User.Username)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestRegisterEndpoint_InvalidBody(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	rec := doRequest(t, server, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "ab",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errorEnvelope(t, rec)
}

func TestRegisterEndpoint_DuplicateUsername(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	registerTestUser(t, server, "alice")

	rec := doRequest(t, server, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "alice",
		"password": "testpassword123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginEndpoint(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	registerTestUser(t, server, "alice")

	rec := doRequest(t, server, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice",
		"password": "testpassword123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp service.AuthResponse
	decodeData(t, rec, &resp)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestLoginEndpoint_BadPassword(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	registerTestUser(t, server, "alice")

	rec := doRequest(t, server, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrongpassword",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCurrentUserEndpoint(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	registered := registerTestUser(t, server, "alice")

	rec := doRequest(t, server, http.MethodGet, "/api/v1/users/me", registered.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var user domain.User
	decodeData(t, rec, &user)
	assert.Equal(t, registered.User.ID, user.ID)
}

func TestCurrentUserEndpoint_NoToken(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	rec := doRequest(t, server, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCurrentUserEndpoint_GarbageToken(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	rec := doRequest(t, server, http.MethodGet, "/api/v1/users/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthEndpoints_RateLimited(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	// Swap in a limiter that denies after two requests.
	server.authLimiter.Stop()
	server.authLimiter = ratelimit.New(0.001, 2)
	defer server.authLimiter.Stop()

	body := map[string]string{"username": "alice", "password": "testpassword123"}
	doRequest(t, server, http.MethodPost, "/api/v1/auth/login", "", body)
	doRequest(t, server, http.MethodPost, "/api/v1/auth/login", "", body)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
