package msauth

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Manager composes the credential store, the identity client, and the
// callback listener into a single access-token resolution. The three tiers
// are attempted strictly in order, with no backward transitions in a run:
//
//  1. cached    — a persisted credential that has not expired
//  2. refresh   — a refresh-token grant, persisted on success
//  3. interactive — the authorization-code flow with the local listener
//
// A failing refresh falls through to the interactive tier rather than
// aborting; any other failure is an AuthError and fatal to the run. At most
// one credential write happens per run, and only after a fully parsed
// token response.
type Manager struct {
	store       *Store
	identity    *IdentityClient
	redirectURI string
	logger      *slog.Logger

	// openURL launches the authorization URL in a browser. On error the
	// URL is printed to stderr so the user can open it manually.
	openURL func(string) error

	// now is injectable so tests can pin credential validity.
	now func() time.Time
}

// NewManager wires a Manager from its collaborators. openURL may be nil, in
// which case the authorization URL is only printed.
func NewManager(store *Store, identity *IdentityClient, redirectURI string, openURL func(string) error, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	if openURL == nil {
		openURL = func(string) error { return errNoBrowser }
	}

	return &Manager{
		store:       store,
		identity:    identity,
		redirectURI: redirectURI,
		logger:      logger,
		openURL:     openURL,
		now:         time.Now,
	}
}

var errNoBrowser = fmt.Errorf("no browser launcher configured")

// AccessToken resolves a usable access token through the three tiers.
// A valid cached credential is returned with zero network calls.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	cred, err := m.store.Load()
	if err != nil {
		// A corrupt credential file is not fatal — treat it like an
		// absent one and re-authenticate.
		m.logger.Warn("ignoring unreadable credential file", slog.String("error", err.Error()))
		cred = nil
	}

	if cred.ValidAt(m.now()) {
		m.logger.Debug("using cached credential", slog.Int64("expires_at", cred.ExpiresAt))

		return cred.AccessToken, nil
	}

	if cred != nil && cred.RefreshToken != "" {
		token, refreshErr := m.tryRefresh(ctx, cred.RefreshToken)
		if refreshErr == nil {
			return token, nil
		}

		// Step 2 failing falls through to step 3 rather than failing
		// outright — the refresh token may have been revoked or expired.
		m.logger.Warn("refresh failed, falling back to interactive flow",
			slog.String("error", refreshErr.Error()),
		)
	}

	return m.interactive(ctx)
}

// Login forces the interactive authorization-code flow, skipping the
// cached and refresh tiers. Used by the login command so a user can
// re-consent or switch accounts.
func (m *Manager) Login(ctx context.Context) error {
	_, err := m.interactive(ctx)

	return err
}

// tryRefresh performs the refresh-token grant and persists the superseding
// credential. The new record overwrites the old one wholesale.
func (m *Manager) tryRefresh(ctx context.Context, refreshToken string) (string, error) {
	m.logger.Info("refreshing expired credential")

	cred, err := m.identity.Refresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	if err := m.store.Save(cred); err != nil {
		return "", &AuthError{Op: "store", Err: err}
	}

	return cred.AccessToken, nil
}

// interactive runs the authorization-code flow: a one-shot local listener,
// a browser visit to the authorization URL, and a code exchange.
func (m *Manager) interactive(ctx context.Context) (string, error) {
	state, err := generateState()
	if err != nil {
		return "", &AuthError{Op: "callback", Err: fmt.Errorf("generating state token: %w", err)}
	}

	listener, err := NewCallbackListener(m.redirectURI, state, m.logger)
	if err != nil {
		return "", err
	}

	if err := listener.Start(ctx); err != nil {
		return "", err
	}

	defer listener.Close()

	authURL := m.identity.AuthCodeURL(state)

	m.logger.Info("waiting for browser authorization")

	if openErr := m.openURL(authURL); openErr != nil {
		fmt.Fprintf(os.Stderr, "Open this URL in your browser:\n%s\n", authURL)
	}

	code, err := listener.Await(ctx)
	if err != nil {
		return "", err
	}

	cred, err := m.identity.Exchange(ctx, code)
	if err != nil {
		return "", err
	}

	if err := m.store.Save(cred); err != nil {
		return "", &AuthError{Op: "store", Err: err}
	}

	m.logger.Info("interactive login successful",
		slog.String("path", m.store.Path()),
		slog.Int64("expires_at", cred.ExpiresAt),
	)

	return cred.AccessToken, nil
}
