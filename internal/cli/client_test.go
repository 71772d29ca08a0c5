package cli

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendsTokenAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "/api/v1/access-codes/current", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":"ABCD2345","expires_at":"2024-01-08T12:00:00Z"}`))
	}))
	defer srv.Close()

	var code AccessCode
	err := NewClient(srv.URL+"/", "tok").Get(context.Background(), "/api/v1/access-codes/current", &code)
	require.NoError(t, err)
	assert.Equal(t, "ABCD2345", code.Code)
}

func TestClientReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
		_, _ = w.Write([]byte(`{"error":{"code":"CODE_EXPIRED","message":"access code has expired"}}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "").Post(context.Background(), "/api/v1/access-codes/X/redeem", nil, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusGone, apiErr.Status)
	assert.Equal(t, "CODE_EXPIRED", apiErr.Code)
	assert.Equal(t, "access code has expired (CODE_EXPIRED)", err.Error())
}

func TestClientNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "").Get(context.Background(), "/api/v1/health", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
}

func TestConfigTokenFileRoundTrip(t *testing.T) {
	cfg := &Config{TokenFile: filepath.Join(t.TempDir(), "nested", "token")}

	require.NoError(t, cfg.LoadToken())
	assert.Empty(t, cfg.Token)

	require.NoError(t, cfg.SaveToken("abc.def.ghi"))

	loaded := &Config{TokenFile: cfg.TokenFile}
	require.NoError(t, loaded.LoadToken())
	assert.Equal(t, "abc.def.ghi", loaded.Token)

	require.NoError(t, loaded.ClearToken())
	require.NoError(t, loaded.ClearToken())

	fresh := &Config{TokenFile: cfg.TokenFile}
	require.NoError(t, fresh.LoadToken())
	assert.Empty(t, fresh.Token)
}

func TestDefaultConfigFromEnvironment(t *testing.T) {
	t.Setenv("CRICKET_SERVER", "http://cricket.test:9000")
	t.Setenv("CRICKET_OUTPUT", "json")
	t.Setenv("CRICKET_TOKEN_FILE", "/tmp/cricket-token")

	cfg := DefaultConfig()
	assert.Equal(t, "http://cricket.test:9000", cfg.ServerURL)
	assert.Equal(t, "json", cfg.Output)
	assert.Equal(t, "/tmp/cricket-token", cfg.TokenFile)
}
