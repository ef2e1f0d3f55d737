package strava

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

const (
	AuthURL  = "https://www.strava.com/oauth/authorize"
	TokenURL = "https://www.strava.com/oauth/token"

	// Scope grants read access to private activities as well as public ones.
	Scope = "activity:read_all"

	DefaultRedirectPort  = 8642
	CallbackPath         = "/callback"
	AuthorizationTimeout = 2 * time.Minute
)

// ErrAuthorizationTimeout is returned when no callback arrives in time.
var ErrAuthorizationTimeout = errors.New("strava: did not receive authorization code in time")

// Endpoint is Strava's OAuth2 endpoint. Strava expects client credentials in
// the form body.
var Endpoint = oauth2.Endpoint{
	AuthURL:   AuthURL,
	TokenURL:  TokenURL,
	AuthStyle: oauth2.AuthStyleInParams,
}

// OAuthConfig builds the authorization-code configuration for a local callback
// on port.
func OAuthConfig(clientID, clientSecret string, port int) *oauth2.Config {
	if port <= 0 {
		port = DefaultRedirectPort
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     Endpoint,
		RedirectURL:  redirectURL(port),
		Scopes:       []string{Scope},
	}
}

func redirectURL(port int) string {
	return "http://localhost:" + strconv.Itoa(port) + CallbackPath
}

// Authorizer obtains tokens, reusing the token file when possible and falling
// back to the browser authorization flow.
type Authorizer struct {
	Config    *oauth2.Config
	TokenFile string

	// Addr is the callback listen address. It defaults to the port of
	// Config.RedirectURL on localhost.
	Addr string
	// Open is handed the authorization URL; typically it prints it or opens a
	// browser. A non-nil error is logged and the flow keeps waiting.
	Open    func(authURL string) error
	Timeout time.Duration
	Logger  *slog.Logger
}

// TokenSource returns a refreshing token source backed by the token file.
// When no usable token is stored it runs Authorize first.
func (a *Authorizer) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	logger := a.logger()
	tok, err := LoadToken(a.tokenFile())
	switch {
	case err == nil && (tok.Valid() || tok.RefreshToken != ""):
		logger.Debug("using stored strava token", "file", a.tokenFile(), "expires", tok.Expiry)
	case err != nil && !errors.Is(err, os.ErrNotExist):
		logger.Warn("ignoring unreadable token file", "file", a.tokenFile(), "err", err)
		fallthrough
	default:
		tok, err = a.Authorize(ctx)
		if err != nil {
			return nil, err
		}
		if err := SaveToken(a.tokenFile(), tok); err != nil {
			return nil, err
		}
		logger.Info("strava authorization successful", "file", a.tokenFile())
	}
	return PersistingTokenSource(a.Config.TokenSource(ctx, tok), a.tokenFile(), tok, logger), nil
}

type callbackResult struct {
	code string
	err  error
}

// Authorize runs the authorization-code flow: it listens for the redirect,
// hands the authorization URL to Open, waits for the callback and exchanges
// the code.
func (a *Authorizer) Authorize(ctx context.Context) (*oauth2.Token, error) {
	if a.Config == nil {
		return nil, errors.New("strava: oauth config is required")
	}
	logger := a.logger()

	ln, err := net.Listen("tcp", a.addr())
	if err != nil {
		return nil, fmt.Errorf("listen for oauth callback: %w", err)
	}
	cfg := *a.Config
	if port := ln.Addr().(*net.TCPAddr).Port; cfg.RedirectURL == "" || a.Addr != "" {
		cfg.RedirectURL = redirectURL(port)
	}

	state, err := randomState()
	if err != nil {
		ln.Close()
		return nil, err
	}

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "Authorization failed: state mismatch.", http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "Authorization failed.", http.StatusBadRequest)
			deliver(results, callbackResult{err: fmt.Errorf("strava: authorization denied: %s", q.Get("error"))})
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h2>Authorization successful!</h2><p>You can close this tab and return to the terminal.</p></body></html>")
		deliver(results, callbackResult{code: code})
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			deliver(results, callbackResult{err: fmt.Errorf("oauth callback server: %w", err)})
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := cfg.AuthCodeURL(state, oauth2.SetAuthURLParam("approval_prompt", "auto"))
	logger.Info("waiting for strava authorization", "callback", cfg.RedirectURL, "timeout", a.timeout())
	if a.Open != nil {
		if err := a.Open(authURL); err != nil {
			logger.Warn("could not open authorization url", "err", err)
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, a.timeout())
	defer cancel()

	var res callbackResult
	select {
	case res = <-results:
	case <-waitCtx.Done():
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			return nil, ErrAuthorizationTimeout
		}
		return nil, waitCtx.Err()
	}
	if res.err != nil {
		return nil, res.err
	}

	exchangeCtx, cancelExchange := context.WithTimeout(ctx, 30*time.Second)
	defer cancelExchange()
	tok, err := cfg.Exchange(exchangeCtx, res.code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

func deliver(ch chan<- callbackResult, res callbackResult) {
	select {
	case ch <- res:
	default:
	}
}

func (a *Authorizer) addr() string {
	if a.Addr != "" {
		return a.Addr
	}
	port := strconv.Itoa(DefaultRedirectPort)
	if a.Config != nil {
		if u, err := url.Parse(a.Config.RedirectURL); err == nil && u.Port() != "" {
			port = u.Port()
		}
	}
	return net.JoinHostPort("localhost", port)
}

func (a *Authorizer) tokenFile() string {
	if a.TokenFile != "" {
		return a.TokenFile
	}
	return DefaultTokenFile
}

func (a *Authorizer) timeout() time.Duration {
	if a.Timeout > 0 {
		return a.Timeout
	}
	return AuthorizationTimeout
}

func (a *Authorizer) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

func randomState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
