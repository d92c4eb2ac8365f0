package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Config{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RedirectURI:  "https://app.example.com/auth/callback",
		Scopes:       []string{"offline", "asset.read"},
		AuthURL:      server.URL + "/auth",
		TokenURL:     server.URL + "/token",
	})
	return client, server
}

func TestAuthorizationURL(t *testing.T) {
	client, server := newTestClient(t, nil)

	raw := client.AuthorizationURL("state-token")
	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, server.URL+"/auth", parsed.Scheme+"://"+parsed.Host+parsed.Path)
	q := parsed.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, "https://app.example.com/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, "state-token", q.Get("state"))
	assert.Equal(t, "offline asset.read", q.Get("scope"))
}

func TestExchangeCode(t *testing.T) {
	var gotForm url.Values
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","expires_in":7200,"scope":"offline  asset.read"}`))
	})

	before := time.Now()
	token, err := client.ExchangeCode(context.Background(), "auth-code")
	require.NoError(t, err)

	assert.Equal(t, "authorization_code", gotForm.Get("grant_type"))
	assert.Equal(t, "auth-code", gotForm.Get("code"))
	assert.Equal(t, "client-1", gotForm.Get("client_id"))
	assert.Equal(t, "secret-1", gotForm.Get("client_secret"))

	assert.Equal(t, "at-1", token.AccessToken)
	assert.Equal(t, "rt-1", token.RefreshToken)
	assert.Equal(t, []string{"offline", "asset.read"}, token.Scopes)
	assert.WithinDuration(t, before.Add(7200*time.Second), token.ExpiresAt, 5*time.Second)
}

func TestExchangeCodeMissingExpiresIn(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1"}`))
	})

	before := time.Now()
	token, err := client.ExchangeCode(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.WithinDuration(t, before.Add(time.Hour), token.ExpiresAt, 5*time.Second)
}

func TestExchangeCodeErrorStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	})

	_, err := client.ExchangeCode(context.Background(), "bad-code")
	var xerr *ExchangeError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, http.StatusBadRequest, xerr.StatusCode)
	assert.Contains(t, xerr.Detail, "invalid_grant")
}

func TestExchangeCodeMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `<html>oops</html>`},
		{name: "missing access token", body: `{"refresh_token":"rt"}`},
		{name: "missing refresh token", body: `{"access_token":"at-1","expires_in":3600}`},
		{name: "zero expires_in", body: `{"access_token":"at-1","refresh_token":"rt","expires_in":0}`},
		{name: "negative expires_in", body: `{"access_token":"at-1","refresh_token":"rt","expires_in":-60}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			_, err := client.ExchangeCode(context.Background(), "code")
			var xerr *ExchangeError
			require.ErrorAs(t, err, &xerr)
		})
	}
}

func TestExchangeCodeTransportError(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	_, err := client.ExchangeCode(context.Background(), "code")
	require.Error(t, err)
	var xerr *ExchangeError
	assert.False(t, errors.As(err, &xerr))
}

func TestRefresh(t *testing.T) {
	var gotForm url.Values
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.Write([]byte(`{"access_token":"at-2","refresh_token":"rt-2","expires_in":3600}`))
	})

	prior := &TokenData{AccessToken: "at-1", RefreshToken: "rt-1", UserID: "user-1"}
	token, err := client.Refresh(context.Background(), prior)
	require.NoError(t, err)

	assert.Equal(t, "refresh_token", gotForm.Get("grant_type"))
	assert.Equal(t, "rt-1", gotForm.Get("refresh_token"))
	assert.Equal(t, "at-2", token.AccessToken)
	assert.Equal(t, "rt-2", token.RefreshToken)
	assert.Equal(t, "user-1", token.UserID)
}

func TestRefreshKeepsOldRefreshToken(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"at-2","expires_in":3600}`))
	})

	prior := &TokenData{AccessToken: "at-1", RefreshToken: "rt-1"}
	token, err := client.Refresh(context.Background(), prior)
	require.NoError(t, err)
	assert.Equal(t, "rt-1", token.RefreshToken)
}

func TestExpiresWithin(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		buffer    time.Duration
		want      bool
	}{
		{name: "well in future", expiresAt: time.Now().Add(time.Hour), buffer: 5 * time.Minute, want: false},
		{name: "inside buffer", expiresAt: time.Now().Add(2 * time.Minute), buffer: 5 * time.Minute, want: true},
		{name: "already expired", expiresAt: time.Now().Add(-time.Minute), buffer: 0, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := &TokenData{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, token.ExpiresWithin(tt.buffer))
		})
	}
}
