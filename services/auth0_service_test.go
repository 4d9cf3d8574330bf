package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gatsishub/gatsishub-api/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth0Service_GetUserInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/userinfo", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"auth0|abc","email":"buyer@acme.ph","name":"Ana Reyes"}`))
	}))
	defer server.Close()

	svc := NewAuth0Service(&config.Config{Auth0Domain: server.URL})
	info, err := svc.GetUserInfo(context.Background(), "token-123")
	require.NoError(t, err)
	assert.Equal(t, "auth0|abc", info.Sub)
	assert.Equal(t, "buyer@acme.ph", info.Email)
	assert.Equal(t, "Ana Reyes", info.Name)
}

func TestAuth0Service_GetUserInfoErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("invalid token"))
	}))
	defer server.Close()

	svc := NewAuth0Service(&config.Config{Auth0Domain: server.URL})
	_, err := svc.GetUserInfo(context.Background(), "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestAuth0Service_UserInfoURL(t *testing.T) {
	svc := NewAuth0Service(&config.Config{Auth0Domain: "gatsishub.au.auth0.com"})
	assert.Equal(t, "https://gatsishub.au.auth0.com/userinfo", svc.userInfoURL())
}
