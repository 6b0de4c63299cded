package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/oauth2"
)

// newGoogleTestServer fakes Google's token and revoke endpoints.
func newGoogleTestServer(t *testing.T, tokenResponse map[string]interface{}, tokenStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(tokenStatus)
		_ = json.NewEncoder(w).Encode(tokenResponse)
	})
	mux.HandleFunc("/revoke", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostFormValue("token") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGoogleAdapter(t *testing.T, srv *httptest.Server) *GoogleAdapter {
	t.Helper()
	return NewGoogleAdapter(GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8000/oauth2/google/callback",
		Scopes:       []string{"scope.a", "scope.b"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  srv.URL + "/auth",
			TokenURL: srv.URL + "/token",
		},
		RevokeURL: srv.URL + "/revoke",
	}, srv.Client())
}

func TestGoogleAdapter_AuthorizationURL(t *testing.T) {
	srv := newGoogleTestServer(t, nil, http.StatusOK)
	a := newTestGoogleAdapter(t, srv)

	authURL, err := a.AuthorizationURL("test-state")
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	q := parsed.Query()
	assert.Equal(t, "test-state", q.Get("state"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "code", q.Get("response_type"))
}

func TestGoogleAdapter_NotConfigured(t *testing.T) {
	a := NewGoogleAdapter(GoogleConfig{}, nil)

	assert.False(t, a.Configured())

	_, err := a.AuthorizationURL("state")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = a.Exchange(context.Background(), "code")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = a.Refresh(context.Background(), "refresh")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGoogleAdapter_Exchange(t *testing.T) {
	srv := newGoogleTestServer(t, map[string]interface{}{
		"access_token":  "A1",
		"refresh_token": "R1",
		"token_type":    "Bearer",
		"expires_in":    3600,
		"scope":         "scope.a scope.b",
	}, http.StatusOK)
	a := newTestGoogleAdapter(t, srv)

	payload, err := a.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)

	assert.Equal(t, "A1", payload.AccessToken)
	assert.Equal(t, "R1", payload.RefreshToken)
	assert.Equal(t, "Bearer", payload.TokenType)
	assert.Equal(t, "scope.a scope.b", payload.Scope)
	require.NotNil(t, payload.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *payload.ExpiresAt, time.Minute)
}

func TestGoogleAdapter_ExchangeFailure(t *testing.T) {
	srv := newGoogleTestServer(t, map[string]interface{}{
		"error": "invalid_grant",
	}, http.StatusBadRequest)
	a := newTestGoogleAdapter(t, srv)

	_, err := a.Exchange(context.Background(), "bad-code")
	require.Error(t, err)

	var exchangeErr *ExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	assert.Equal(t, "exchange", exchangeErr.Op)
	assert.Equal(t, "invalid_grant", exchangeErr.Detail)
}

func TestGoogleAdapter_Refresh(t *testing.T) {
	srv := newGoogleTestServer(t, map[string]interface{}{
		"access_token": "A2",
		"token_type":   "Bearer",
		"expires_in":   3600,
	}, http.StatusOK)
	a := newTestGoogleAdapter(t, srv)

	payload, err := a.Refresh(context.Background(), "R1")
	require.NoError(t, err)
	assert.Equal(t, "A2", payload.AccessToken)
	require.NotNil(t, payload.ExpiresAt)
}

func TestGoogleAdapter_Revoke(t *testing.T) {
	srv := newGoogleTestServer(t, nil, http.StatusOK)
	a := newTestGoogleAdapter(t, srv)

	assert.NoError(t, a.Revoke(context.Background(), "A1"))
}

func TestGoogleAdapter_SupportsRefresh(t *testing.T) {
	assert.True(t, NewGoogleAdapter(GoogleConfig{}, nil).SupportsRefresh())
}
