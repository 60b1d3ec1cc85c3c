package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"username": "alice",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	env := decodeEnvelope[UserResponse](t, resp.Body.Bytes())
	assert.True(t, env.Success)
	assert.Equal(t, "alice", env.Data.Username)
	assert.NotEmpty(t, env.Data.ID)
	assert.NotContains(t, resp.Body.String(), "password")
}

func TestRegister_DuplicateUsername(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t, "alice")

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"username": "alice",
		"password": "password456",
	})

	assert.Equal(t, http.StatusConflict, resp.Code)
	env := decodeEnvelope[any](t, resp.Body.Bytes())
	require.NotNil(t, env.Error)
	assert.Equal(t, "DUPLICATE_USER", env.Error.Code)
}

func TestRegister_ShortPassword(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"username": "alice",
		"password": "short",
	})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	env := decodeEnvelope[any](t, resp.Body.Bytes())
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION", env.Error.Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ts := newTestServer(t)
	ts.login(t, "alice")

	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"username": "alice",
		"password": "wrong-password",
	})

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	env := decodeEnvelope[any](t, resp.Body.Bytes())
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)
}

func TestLogin_ReturnsBearerToken(t *testing.T) {
	ts := newTestServer(t)
	ts.api.Post("/api/v1/auth/register", map[string]any{"username": "alice", "password": "password123"})

	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"username": "alice",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	env := decodeEnvelope[AuthResponse](t, resp.Body.Bytes())
	assert.Equal(t, "Bearer", env.Data.TokenType)
	assert.NotEmpty(t, env.Data.AccessToken)
	assert.Equal(t, "alice", env.Data.User.Username)
	assert.False(t, env.Data.ExpiresAt.IsZero())
}
