package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// DefaultRedirectAddr is the loopback address registered as redirect URI.
const DefaultRedirectAddr = "127.0.0.1:8080"

// ErrNoToken is returned when a token is required but none has been stored.
var ErrNoToken = errors.New("no stored token, run 'gcal login' first")

// ErrTokenRejected is returned when Google refuses to refresh the stored
// token, typically because access was revoked or the grant expired.
var ErrTokenRejected = errors.New("stored token was rejected, run 'gcal login' again")

// TokenStore is an interface for saving and loading OAuth tokens.
type TokenStore interface {
	SaveToken(token *oauth2.Token) error
	LoadToken() (*oauth2.Token, error)
}

// NewOAuthConfig builds a read-only calendar OAuth config for a desktop client.
func NewOAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  "http://" + DefaultRedirectAddr, // replaced once the loopback server is listening
		Scopes:       []string{calendar.CalendarReadonlyScope},
		Endpoint:     google.Endpoint,
	}
}

// autoSaveTokenSource wraps an oauth2.TokenSource and saves refreshed tokens.
type autoSaveTokenSource struct {
	source     oauth2.TokenSource
	tokenStore TokenStore
	lastToken  *oauth2.Token
	logger     *zap.Logger
}

// Token implements oauth2.TokenSource.
func (a *autoSaveTokenSource) Token() (*oauth2.Token, error) {
	token, err := a.source.Token()
	if err != nil {
		return nil, err
	}

	if a.lastToken == nil || a.lastToken.AccessToken != token.AccessToken {
		if err := a.tokenStore.SaveToken(token); err != nil {
			return nil, fmt.Errorf("failed to save refreshed token: %w", err)
		}
		a.logger.Debug("saved refreshed token", zap.Time("expiry", token.Expiry))
		a.lastToken = token
	}

	return token, nil
}

// Flow runs the installed-app authorization flow and hands out HTTP clients
// authorized with the stored token.
type Flow struct {
	Config *oauth2.Config
	Store  TokenStore

	// Out receives the instructions shown to the user; os.Stderr when nil.
	Out io.Writer
	// In, when set, is read for a pasted authorization code instead of
	// waiting for the loopback redirect.
	In io.Reader

	// Addr is the loopback listen address; DefaultRedirectAddr when empty.
	Addr    string
	Timeout time.Duration
	Logger  *zap.Logger
}

func (f *Flow) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}

func (f *Flow) out() io.Writer {
	if f.Out == nil {
		return os.Stderr
	}
	return f.Out
}

// Client returns an authenticated HTTP client. When no token is stored, or
// Google rejects the stored one, it runs the interactive flow first.
func (f *Flow) Client(ctx context.Context) (*http.Client, error) {
	token, err := f.Store.LoadToken()
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	if token != nil && !token.Valid() {
		token, err = f.refresh(ctx, token)
		if errors.Is(err, ErrTokenRejected) {
			f.logger().Warn("stored token was rejected, authorizing again", zap.Error(err))
			token, err = nil, nil
		}
		if err != nil {
			return nil, err
		}
	}

	if token == nil {
		token, err = f.authorize(ctx)
		if err != nil {
			return nil, err
		}
	}

	return f.clientFor(ctx, token), nil
}

// StoredClient is like Client but never prompts; it fails with ErrNoToken
// when nothing has been stored yet.
func (f *Flow) StoredClient(ctx context.Context) (*http.Client, error) {
	token, err := f.Store.LoadToken()
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	if token == nil {
		return nil, ErrNoToken
	}
	if !token.Valid() {
		if token, err = f.refresh(ctx, token); err != nil {
			return nil, err
		}
	}
	return f.clientFor(ctx, token), nil
}

// Login always runs the interactive flow and replaces the stored token.
func (f *Flow) Login(ctx context.Context) error {
	_, err := f.authorize(ctx)
	return err
}

// refresh renews an expired token and stores the result. A refusal from the
// token endpoint is reported as ErrTokenRejected.
func (f *Flow) refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	fresh, err := f.Config.TokenSource(ctx, token).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, fmt.Errorf("%w: %w", ErrTokenRejected, err)
		}
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	if err := f.Store.SaveToken(fresh); err != nil {
		return nil, fmt.Errorf("failed to save refreshed token: %w", err)
	}
	f.logger().Debug("refreshed stored token", zap.Time("expiry", fresh.Expiry))
	return fresh, nil
}

func (f *Flow) clientFor(ctx context.Context, token *oauth2.Token) *http.Client {
	tokenSource := f.Config.TokenSource(ctx, token)

	autoSaveSource := &autoSaveTokenSource{
		source:     oauth2.ReuseTokenSource(token, tokenSource),
		tokenStore: f.Store,
		lastToken:  token,
		logger:     f.logger(),
	}

	return oauth2.NewClient(ctx, autoSaveSource)
}

func (f *Flow) authorize(ctx context.Context) (*oauth2.Token, error) {
	var (
		code string
		err  error
	)
	if f.In != nil {
		code, err = f.readCode()
	} else {
		code, err = f.awaitRedirect(ctx)
	}
	if err != nil {
		return nil, err
	}

	token, err := f.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if err := f.Store.SaveToken(token); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}

	fmt.Fprintln(f.out(), "Authorization successful!")
	return token, nil
}

func (f *Flow) readCode() (string, error) {
	authURL := f.Config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)

	fmt.Fprintln(f.out(), "Please visit the following URL to authorize the application:")
	fmt.Fprintln(f.out(), authURL)
	fmt.Fprint(f.out(), "Enter the authorization code: ")

	var code string
	if _, err := fmt.Fscanln(f.In, &code); err != nil {
		return "", fmt.Errorf("failed to read authorization code: %w", err)
	}
	return code, nil
}

func (f *Flow) awaitRedirect(ctx context.Context) (string, error) {
	addr := f.Addr
	if addr == "" {
		addr = DefaultRedirectAddr
	}
	redirectURL, codeChan, errorChan, shutdown, err := startLocalServer(addr)
	if err != nil {
		return "", err
	}
	defer shutdown()

	f.Config.RedirectURL = redirectURL
	authURL := f.Config.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	f.logger().Debug("started local server", zap.String("redirect", redirectURL))
	if redirectURL != "http://"+addr {
		fmt.Fprintf(f.out(), "Note: %s was unavailable. Make sure to add %s to your authorized redirect URIs in Google Cloud Console.\n", addr, redirectURL)
	}
	fmt.Fprintln(f.out(), "\nPlease visit the following URL to authorize the application:")
	fmt.Fprintln(f.out(), authURL)
	fmt.Fprintln(f.out(), "\nWaiting for authorization...")

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	select {
	case code := <-codeChan:
		return code, nil
	case err := <-errorChan:
		return "", fmt.Errorf("failed to receive authorization code: %w", err)
	case <-time.After(timeout):
		return "", fmt.Errorf("authorization timeout: no response received within %s", timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// startLocalServer starts a local HTTP server to receive the OAuth callback.
// It listens on addr, or on a random loopback port if addr is taken.
func startLocalServer(addr string) (string, <-chan string, <-chan error, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		listener, err = net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return "", nil, nil, nil, fmt.Errorf("failed to start local server: %w", err)
		}
	}

	redirectURL := "http://" + listener.Addr().String()

	codeChan := make(chan string, 1)
	errorChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		switch {
		case query.Get("code") != "":
			fmt.Fprintf(w, "<html><body><h1>Authorization successful!</h1><p>You can close this window.</p></body></html>")
			select {
			case codeChan <- query.Get("code"):
			default:
			}
		case query.Get("error") != "":
			fmt.Fprintf(w, "<html><body><h1>Authorization failed</h1><p>Error: %s</p></body></html>", query.Get("error"))
			select {
			case errorChan <- fmt.Errorf("authorization error: %s", query.Get("error")):
			default:
			}
		default:
			http.Error(w, "no authorization code received", http.StatusBadRequest)
		}
	})

	server := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  10 * time.Second,
	}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errorChan <- fmt.Errorf("server error: %w", err):
			default:
			}
		}
	}()

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}

	return redirectURL, codeChan, errorChan, shutdown, nil
}
