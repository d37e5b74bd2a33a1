package msauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// stateTokenBytes is the number of random bytes for the OAuth2 state parameter.
const stateTokenBytes = 16

// shutdownTimeout is how long to wait for the callback server to drain.
const shutdownTimeout = 5 * time.Second

// confirmationPage is served to the browser once the code is captured.
const confirmationPage = "<html><body><h1>Authentication successful</h1>" +
	"<p>You can close this window and return to the terminal.</p></body></html>"

// callbackResult carries the authorization code or error from the handler.
type callbackResult struct {
	code string
	err  error
}

// CallbackListener is a one-shot local HTTP endpoint that captures a single
// authorization code from a browser redirect. The handoff to the waiter is
// at-most-once: the first request carrying a code wins, later requests are
// served the same confirmation page but their codes are discarded.
type CallbackListener struct {
	addr   string
	path   string
	state  string
	logger *slog.Logger

	srv       *http.Server
	resultCh  chan callbackResult
	once      sync.Once
	boundAddr string
}

// NewCallbackListener builds a listener bound to the host:port and path of
// the given redirect URI. state is the CSRF token embedded in the
// authorization URL; redirects with a different state are rejected.
func NewCallbackListener(redirectURI, state string, logger *slog.Logger) (*CallbackListener, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, &AuthError{Op: "callback", Err: fmt.Errorf("parsing redirect URI: %w", err)}
	}

	host := u.Hostname()
	port := u.Port()

	if port == "" {
		port = "80"
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &CallbackListener{
		addr:     net.JoinHostPort(host, port),
		path:     path,
		state:    state,
		logger:   logger,
		resultCh: make(chan callbackResult, 1),
	}, nil
}

// Start binds the listener and begins serving in the background. The caller
// must call Close when done; in practice the process exits at run end,
// which frees the port either way.
func (l *CallbackListener) Start(ctx context.Context) error {
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", l.addr)
	if err != nil {
		return &AuthError{Op: "callback", Err: fmt.Errorf("binding %s: %w", l.addr, err)}
	}

	l.boundAddr = listener.Addr().String()

	l.logger.Info("callback listener bound",
		slog.String("addr", l.boundAddr),
		slog.String("path", l.path),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+l.path, l.handleRedirect)

	l.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		if serveErr := l.srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			l.deliver(callbackResult{err: fmt.Errorf("serving callback: %w", serveErr)})
		}
	}()

	return nil
}

// Addr returns the listener's bound address, valid after Start. Differs
// from the configured address only when the redirect URI names port 0.
func (l *CallbackListener) Addr() string {
	return l.boundAddr
}

// handleRedirect validates the state, extracts the code, and hands exactly
// one result to the waiter.
func (l *CallbackListener) handleRedirect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// Validate state to prevent CSRF.
	if q.Get("state") != l.state {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		l.deliver(callbackResult{err: errors.New("state mismatch (possible CSRF)")})

		return
	}

	// The provider reports user denial and other failures on the redirect.
	if errParam := q.Get("error"); errParam != "" {
		desc := q.Get("error_description")
		http.Error(w, "Authorization failed: "+errParam, http.StatusBadRequest)
		l.deliver(callbackResult{err: fmt.Errorf("authorization failed: %s: %s", errParam, desc)})

		return
	}

	code := q.Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		l.deliver(callbackResult{err: errors.New("redirect missing authorization code")})

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, confirmationPage)
	l.deliver(callbackResult{code: code})
}

// deliver hands the result to the waiter at most once. Later redirects are
// still answered over HTTP but their outcome is discarded — no second
// caller is waiting.
func (l *CallbackListener) deliver(res callbackResult) {
	l.once.Do(func() {
		l.resultCh <- res
	})
}

// Await blocks until a single authorization code arrives, the handler
// fails, or the context is canceled. The context gives callers a bounded
// wait for a browser flow the user may never complete.
func (l *CallbackListener) Await(ctx context.Context) (string, error) {
	select {
	case res := <-l.resultCh:
		if res.err != nil {
			return "", &AuthError{Op: "callback", Err: res.err}
		}

		l.logger.Info("authorization code received")

		return res.code, nil
	case <-ctx.Done():
		return "", &AuthError{Op: "callback", Err: fmt.Errorf("waiting for redirect: %w", ctx.Err())}
	}
}

// Close gracefully shuts down the callback HTTP server. Best-effort — a
// shutdown error is logged, not propagated, since the exchange has already
// happened by the time Close runs.
func (l *CallbackListener) Close() {
	if l.srv == nil {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := l.srv.Shutdown(shutdownCtx); err != nil {
		l.logger.Warn("callback listener shutdown error", slog.String("error", err.Error()))
	}
}

// generateState produces a cryptographically random hex string for the
// OAuth2 state parameter.
func generateState() (string, error) {
	b := make([]byte, stateTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
