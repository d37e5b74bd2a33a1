package msauth

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// testManager wires a Manager against a mock token endpoint and a temp
// credential store.
func testManager(t *testing.T, endpoint *oauth2.Endpoint, redirectURI string, openURL func(string) error) (*Manager, *Store) {
	t.Helper()

	store := NewStore(filepath.Join(t.TempDir(), "credential.json"))
	identity := NewIdentityClient("client-id", "client-secret", "common", redirectURI, slog.Default())

	if endpoint != nil {
		identity.cfg.Endpoint = *endpoint
	}

	return NewManager(store, identity, redirectURI, openURL, slog.Default()), store
}

// browserSimulator returns an openURL func that plays the user's part:
// it extracts state and redirect_uri from the authorization URL and hits
// the local listener with the given code.
func browserSimulator(t *testing.T, code string) func(string) error {
	t.Helper()

	return func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}

		q := u.Query()
		redirect := q.Get("redirect_uri") + "?code=" + code + "&state=" + q.Get("state")

		go func() {
			resp, getErr := http.Get(redirect)
			if getErr == nil {
				resp.Body.Close()
			}
		}()

		return nil
	}
}

func TestAccessTokenCachedCredentialNoNetwork(t *testing.T) {
	endpoint, hits := newMockTokenServer(t, nil)

	m, store := testManager(t, endpoint, "http://127.0.0.1:47831/callback", nil)

	require.NoError(t, store.Save(&Credential{
		AccessToken: "cached-token",
		ExpiresAt:   time.Now().Unix() + 600,
	}))

	token, err := m.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cached-token", token)
	assert.Equal(t, int32(0), hits.Load(), "valid cached credential must make zero network calls")
}

func TestAccessTokenRefreshesExpiredCredential(t *testing.T) {
	endpoint, hits := newMockTokenServer(t, nil)

	m, store := testManager(t, endpoint, "http://127.0.0.1:47832/callback", nil)

	require.NoError(t, store.Save(&Credential{
		AccessToken:  "stale-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Unix() - 600,
	}))

	before := time.Now().Unix()

	token, err := m.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-access-token", token)
	assert.Equal(t, int32(1), hits.Load())

	// The superseding credential is persisted with a recomputed expiry.
	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "test-access-token", persisted.AccessToken)
	assert.GreaterOrEqual(t, persisted.ExpiresAt, before+3600)
}

func TestAccessTokenFallsThroughToInteractive(t *testing.T) {
	// Refresh grants fail, authorization-code grants succeed. A dead
	// refresh token must not abort the run — it falls through to the
	// interactive flow.
	endpoint, hits := newMockTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())

		if r.PostForm.Get("grant_type") == "refresh_token" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(testTokenJSON))
	})

	m, store := testManager(t, endpoint, "http://127.0.0.1:47833/callback", browserSimulator(t, "auth-code"))

	require.NoError(t, store.Save(&Credential{
		AccessToken:  "stale-token",
		RefreshToken: "revoked-refresh-token",
		ExpiresAt:    time.Now().Unix() - 600,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	token, err := m.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test-access-token", token)
	assert.Equal(t, int32(2), hits.Load(), "one refresh attempt, one exchange")

	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "test-access-token", persisted.AccessToken)
}

func TestAccessTokenInteractiveWhenNotLoggedIn(t *testing.T) {
	endpoint, hits := newMockTokenServer(t, nil)

	m, store := testManager(t, endpoint, "http://127.0.0.1:47834/callback", browserSimulator(t, "auth-code"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	token, err := m.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test-access-token", token)
	assert.Equal(t, int32(1), hits.Load())

	persisted, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, "test-refresh-token", persisted.RefreshToken)
}

func TestAccessTokenExchangeFailurePersistsNothing(t *testing.T) {
	endpoint, _ := newMockTokenServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"server_error"}`))
	})

	m, store := testManager(t, endpoint, "http://127.0.0.1:47835/callback", browserSimulator(t, "auth-code"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := m.AccessToken(ctx)
	require.Error(t, err)

	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)

	persisted, loadErr := store.Load()
	require.NoError(t, loadErr)
	assert.Nil(t, persisted, "no partial credential is ever persisted")
}

func TestAccessTokenInteractiveCanceled(t *testing.T) {
	endpoint, _ := newMockTokenServer(t, nil)

	// openURL succeeds but no browser ever completes the flow.
	m, _ := testManager(t, endpoint, "http://127.0.0.1:47836/callback", func(string) error { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := m.AccessToken(ctx)
	require.Error(t, err)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "callback", authErr.Op)
}
