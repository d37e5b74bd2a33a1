package msauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// Scopes requested on the authorization URL. offline_access yields the
// refresh token; Mail.Send is the only Graph permission this tool needs.
var defaultScopes = []string{
	"offline_access",
	"Mail.Send",
}

// IdentityClient exchanges an authorization code, or a refresh token, for a
// fresh credential via the identity provider's token endpoint. Neither
// operation retries internally — retry policy belongs to the caller, and
// none is applied anywhere in kindlepost.
type IdentityClient struct {
	cfg    *oauth2.Config
	logger *slog.Logger

	// now is injectable so tests can pin the ExpiresAt stamp.
	now func() time.Time
}

// NewIdentityClient builds a client for the Azure AD v2.0 token endpoint of
// the given tenant. redirectURI must match the URI registered on the Azure
// application and the one the local listener binds.
func NewIdentityClient(clientID, clientSecret, tenantID, redirectURI string, logger *slog.Logger) *IdentityClient {
	if logger == nil {
		logger = slog.Default()
	}

	return &IdentityClient{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       defaultScopes,
			Endpoint:     microsoft.AzureADEndpoint(tenantID),
		},
		logger: logger,
		now:    time.Now,
	}
}

// AuthCodeURL returns the authorization URL the user must open in a
// browser. response_mode=query makes the provider deliver the code as a
// query parameter on the redirect, which is what the listener parses.
func (c *IdentityClient) AuthCodeURL(state string) string {
	return c.cfg.AuthCodeURL(state, oauth2.SetAuthURLParam("response_mode", "query"))
}

// Exchange trades an authorization code for a credential
// (grant_type=authorization_code). Single attempt; any transport failure,
// non-2xx status, or unparsable body is an AuthError.
func (c *IdentityClient) Exchange(ctx context.Context, code string) (*Credential, error) {
	tok, err := c.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, &AuthError{Op: "exchange", Err: describeTokenErr(err)}
	}

	cred := c.credentialFromToken(tok)

	c.logger.Info("exchanged authorization code for credential",
		slog.Int64("expires_at", cred.ExpiresAt),
		slog.Bool("has_refresh_token", cred.RefreshToken != ""),
	)

	return cred, nil
}

// Refresh trades a refresh token for a new credential
// (grant_type=refresh_token). The provider applies the originally consented
// scopes. Single attempt, same failure mapping as Exchange.
func (c *IdentityClient) Refresh(ctx context.Context, refreshToken string) (*Credential, error) {
	// A token source seeded with only a refresh token performs exactly one
	// refresh call when asked for a token.
	src := c.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	tok, err := src.Token()
	if err != nil {
		return nil, &AuthError{Op: "refresh", Err: describeTokenErr(err)}
	}

	cred := c.credentialFromToken(tok)

	c.logger.Info("refreshed credential",
		slog.Int64("expires_at", cred.ExpiresAt),
		slog.Bool("has_refresh_token", cred.RefreshToken != ""),
	)

	return cred, nil
}

// credentialFromToken maps a provider token response onto the persisted
// credential shape and stamps ExpiresAt = now + expires_in. The stamp
// happens here, once, for both the exchange and refresh paths, so a
// refreshed credential always carries a recomputed expiry.
func (c *IdentityClient) credentialFromToken(tok *oauth2.Token) *Credential {
	expiresIn := tok.ExpiresIn
	if expiresIn == 0 && !tok.Expiry.IsZero() {
		expiresIn = int64(time.Until(tok.Expiry).Round(time.Second).Seconds())
	}

	cred := &Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresIn:    expiresIn,
		ExpiresAt:    c.now().Unix() + expiresIn,
	}

	if id, ok := tok.Extra("id_token").(string); ok {
		cred.IDToken = id
	}

	return cred
}

// describeTokenErr unwraps oauth2.RetrieveError so AuthError carries the
// HTTP status and the provider's response body verbatim.
func describeTokenErr(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return fmt.Errorf("token endpoint returned HTTP %d: %s", re.Response.StatusCode, re.Body)
	}

	return err
}
