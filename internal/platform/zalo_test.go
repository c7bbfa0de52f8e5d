package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studynote/studynote-api/pkg/config"
	appErrors "github.com/studynote/studynote-api/pkg/errors"
)

func newZaloTestProvider(t *testing.T, handler http.HandlerFunc) *ZaloProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewZaloProvider(config.PlatformConfig{
		Name:           config.PlatformZalo,
		ZaloOAToken:    "oa-token",
		ZaloAPIBaseURL: server.URL,
	})
}

func TestZaloVerifyToken(t *testing.T) {
	provider := newZaloTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2.0/me", r.URL.Path)
		require.Equal(t, "id,name,picture", r.URL.Query().Get("fields"))
		require.Equal(t, "user-token", r.Header.Get("access_token"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":   "z-123",
			"name": "Co Lan",
			"picture": map[string]interface{}{
				"data": map[string]string{"url": "https://cdn.example.com/avatar.jpg"},
			},
		})
	})

	identity, err := provider.VerifyToken(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, "z-123", identity.UserID)
	assert.Equal(t, "Co Lan", identity.Name)
	assert.Equal(t, "https://cdn.example.com/avatar.jpg", identity.AvatarURL)
}

func TestZaloVerifyTokenRejected(t *testing.T) {
	provider := newZaloTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":   -216,
			"message": "access token invalid",
		})
	})

	_, err := provider.VerifyToken(context.Background(), "bad-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestZaloVerifyTokenEmpty(t *testing.T) {
	provider := newZaloTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty token")
	})

	_, err := provider.VerifyToken(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestZaloSendMessage(t *testing.T) {
	var captured zaloMessageRequest
	provider := newZaloTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v3.0/oa/message/cs", r.URL.Path)
		require.Equal(t, "oa-token", r.Header.Get("access_token"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]interface{}{"error": 0, "message": "Success"})
	})

	err := provider.SendMessage(context.Background(), "z-parent", "hello")
	require.NoError(t, err)
	assert.Equal(t, "z-parent", captured.Recipient.UserID)
	assert.Equal(t, "hello", captured.Message.Text)
}

func TestZaloSendMessageRejected(t *testing.T) {
	provider := newZaloTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"error": -201, "message": "invalid recipient"})
	})

	err := provider.SendMessage(context.Background(), "ghost", "hello")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPlatform.Code, appErrors.FromError(err).Code)
}

func TestProviderSelection(t *testing.T) {
	zalo := New(config.PlatformConfig{Name: config.PlatformZalo})
	assert.Equal(t, config.PlatformZalo, zalo.Name())

	web := New(config.PlatformConfig{Name: config.PlatformWeb})
	assert.Equal(t, config.PlatformWeb, web.Name())

	fallback := New(config.PlatformConfig{Name: "something-else"})
	assert.Equal(t, config.PlatformWeb, fallback.Name())
}

func TestWebProviderBehaviour(t *testing.T) {
	provider := NewWebProvider()

	_, err := provider.VerifyToken(context.Background(), "any")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	assert.NoError(t, provider.SendMessage(context.Background(), "user", "text"))
}
