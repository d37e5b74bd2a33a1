// Package msauth implements authentication against the Microsoft identity
// platform (Azure AD v2.0) for kindlepost: the authorization-code flow with
// a local redirect listener, the refresh-token flow, and on-disk credential
// persistence. It is not a general OAuth library — only the two flows this
// application needs are implemented.
package msauth

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotLoggedIn is returned when no credential file exists and a cached or
// refreshed token was required (non-interactive paths).
var ErrNotLoggedIn = errors.New("msauth: not logged in")

// AuthError wraps any failure during credential acquisition: the listener
// never receiving a code, a token-endpoint call failing, or an unparsable
// response. Authentication failures are fatal to a run.
type AuthError struct {
	// Op names the acquisition step that failed: "callback", "exchange",
	// "refresh", "store".
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("msauth: %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Credential is the persisted access/refresh token bundle. The wire fields
// mirror the identity provider's token response; ExpiresAt is stamped
// locally at acquisition time and is the sole validity authority — it is
// never recomputed from ExpiresIn after acquisition.
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	// ExpiresAt is the Unix epoch second the access token expires,
	// computed once as acquisition time + ExpiresIn. A credential
	// without it is treated as never valid.
	ExpiresAt int64 `json:"expires_at,omitempty"`
}

// ValidAt reports whether the access token is still usable at the given
// instant. Credentials predating the ExpiresAt stamp are never valid,
// forcing a refresh or re-auth.
func (c *Credential) ValidAt(now time.Time) bool {
	if c == nil || c.ExpiresAt == 0 {
		return false
	}

	return now.Unix() < c.ExpiresAt
}
