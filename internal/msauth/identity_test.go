package msauth

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// testTokenJSON is the canonical token response for tests.
const testTokenJSON = `{
	"access_token": "test-access-token",
	"token_type": "Bearer",
	"refresh_token": "test-refresh-token",
	"id_token": "test-id-token",
	"expires_in": 3600
}`

// newMockTokenServer creates a test server for the token endpoint.
// handler controls behavior; if nil, returns testTokenJSON. The returned
// counter tracks token endpoint hits.
func newMockTokenServer(t *testing.T, handler http.HandlerFunc) (*oauth2.Endpoint, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32

	if handler == nil {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(testTokenJSON))
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &oauth2.Endpoint{
		AuthURL:   srv.URL + "/authorize",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}, &hits
}

// testIdentityClient builds a client pointing at a mock endpoint.
func testIdentityClient(t *testing.T, endpoint *oauth2.Endpoint) *IdentityClient {
	t.Helper()

	c := NewIdentityClient("client-id", "client-secret", "common", "http://localhost:8080/callback", slog.Default())
	c.cfg.Endpoint = *endpoint

	return c
}

func TestAuthCodeURL(t *testing.T) {
	c := testIdentityClient(t, &oauth2.Endpoint{AuthURL: "https://example.test/authorize"})

	raw := c.AuthCodeURL("state-123")

	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "query", q.Get("response_mode"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "http://localhost:8080/callback", q.Get("redirect_uri"))
	assert.Contains(t, q.Get("scope"), "offline_access")
	assert.Contains(t, q.Get("scope"), "Mail.Send")
}

func TestExchangeSuccess(t *testing.T) {
	endpoint, hits := newMockTokenServer(t, nil)
	c := testIdentityClient(t, endpoint)

	before := time.Now().Unix()

	cred, err := c.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)

	after := time.Now().Unix()

	assert.Equal(t, "test-access-token", cred.AccessToken)
	assert.Equal(t, "test-refresh-token", cred.RefreshToken)
	assert.Equal(t, "test-id-token", cred.IDToken)
	assert.Equal(t, "Bearer", cred.TokenType)
	assert.Equal(t, int64(3600), cred.ExpiresIn)

	// ExpiresAt is stamped at acquisition time: now + expires_in.
	assert.GreaterOrEqual(t, cred.ExpiresAt, before+3600)
	assert.LessOrEqual(t, cred.ExpiresAt, after+3600+1)

	assert.Equal(t, int32(1), hits.Load(), "exactly one attempt, no retries")
}

func TestExchangeSendsAuthCodeGrant(t *testing.T) {
	var form url.Values

	endpoint, _ := newMockTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(testTokenJSON))
	})

	c := testIdentityClient(t, endpoint)

	_, err := c.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)

	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "auth-code", form.Get("code"))
	assert.Equal(t, "http://localhost:8080/callback", form.Get("redirect_uri"))
}

func TestExchangeNonSuccessStatus(t *testing.T) {
	endpoint, _ := newMockTokenServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	})

	c := testIdentityClient(t, endpoint)

	_, err := c.Exchange(context.Background(), "bad-code")
	require.Error(t, err)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "exchange", authErr.Op)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestRefreshSuccess(t *testing.T) {
	var form url.Values

	endpoint, hits := newMockTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access_token": "rotated-access-token",
			"token_type": "Bearer",
			"refresh_token": "rotated-refresh-token",
			"expires_in": 7200
		}`))
	})

	c := testIdentityClient(t, endpoint)

	before := time.Now().Unix()

	cred, err := c.Refresh(context.Background(), "old-refresh-token")
	require.NoError(t, err)

	assert.Equal(t, "refresh_token", form.Get("grant_type"))
	assert.Equal(t, "old-refresh-token", form.Get("refresh_token"))

	assert.Equal(t, "rotated-access-token", cred.AccessToken)
	assert.Equal(t, "rotated-refresh-token", cred.RefreshToken)

	// The refreshed credential carries a recomputed expiry stamp.
	assert.GreaterOrEqual(t, cred.ExpiresAt, before+7200)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRefreshNonSuccessStatus(t *testing.T) {
	endpoint, _ := newMockTokenServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	})

	c := testIdentityClient(t, endpoint)

	_, err := c.Refresh(context.Background(), "revoked")
	require.Error(t, err)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "refresh", authErr.Op)
	assert.Contains(t, err.Error(), "401")
}

func TestExchangeMalformedBody(t *testing.T) {
	endpoint, _ := newMockTokenServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token_type": "Bearer"}`)) // no access_token
	})

	c := testIdentityClient(t, endpoint)

	_, err := c.Exchange(context.Background(), "auth-code")
	require.Error(t, err)

	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
}
