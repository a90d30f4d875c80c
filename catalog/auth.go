package catalog

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
)

// Scope is the permission requested when building the authorization URL and
// bound to every Client. Both call sites read it from here so consent and
// granted capability cannot drift apart.
const Scope = drive.DriveScope

// Scopes returns a fresh slice holding Scope.
func Scopes() []string {
	return []string{Scope}
}

// Settings identifies the OAuth client. Empty AuthURL and TokenURL default to
// Google's endpoints.
type Settings struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
}

// OAuth2Config builds the oauth2.Config for s with the fixed scope set.
func (s Settings) OAuth2Config() *oauth2.Config {
	endpoint := google.Endpoint
	if s.AuthURL != "" {
		endpoint.AuthURL = s.AuthURL
	}
	if s.TokenURL != "" {
		endpoint.TokenURL = s.TokenURL
	}

	return &oauth2.Config{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		RedirectURL:  s.RedirectURL,
		Scopes:       Scopes(),
		Endpoint:     endpoint,
	}
}

// AuthCodeURL returns the URL the user visits to grant access. It asks for
// offline access so the token response carries a refresh token.
func (s Settings) AuthCodeURL(state string) string {
	return s.OAuth2Config().AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Grant is the outcome of an interactive login: the authorization code and
// the redirect URL it was delivered to. The exchange must present the same
// redirect URL.
type Grant struct {
	Code        string
	RedirectURL string
}

const shutdownTimeout = 5 * time.Second

type callbackResult struct {
	code string
	err  error
}

// Login runs the loopback authorization flow: it serves the redirect URL on
// localhost, opens the authorization URL with openURL, and waits for the
// browser to come back with a code. A redirect URL with port 0 is served on
// a random port and the returned Grant carries the actual URL.
func Login(ctx context.Context, s Settings, openURL func(string) error, logger *zap.Logger) (*Grant, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	redirect, err := url.Parse(s.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("catalog: invalid redirect url: %w", err)
	}

	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("catalog: binding callback listener: %w", err)
	}

	// Keep the host name the user registered, only the port may change.
	if _, port, splitErr := net.SplitHostPort(listener.Addr().String()); splitErr == nil {
		redirect.Host = net.JoinHostPort(redirect.Hostname(), port)
	}
	s.RedirectURL = redirect.String()

	state, err := randomState()
	if err != nil {
		listener.Close()
		return nil, fmt.Errorf("catalog: generating state: %w", err)
	}

	resultCh := make(chan callbackResult, 1)
	callbackPath := redirect.Path
	if callbackPath == "" {
		callbackPath = "/"
	}

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		handleCallback(w, r, state, resultCh)
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: shutdownTimeout}
	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			deliver(resultCh, callbackResult{err: fmt.Errorf("catalog: callback server error: %w", serveErr)})
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("callback server shutdown error", zap.Error(err))
		}
	}()

	authURL := s.AuthCodeURL(state)
	logger.Info("opening browser for authorization", zap.String("redirect_url", s.RedirectURL))
	if err := openURL(authURL); err != nil {
		logger.Warn("failed to open browser", zap.Error(err))
		fmt.Fprintf(os.Stderr, "\nIf your browser didn't open, please open this URL manually:\n\n%s\n\n", authURL)
	}

	select {
	case res := <-resultCh:
		if res.err != nil {
			return nil, res.err
		}
		logger.Debug("authorization code received")
		return &Grant{Code: res.code, RedirectURL: s.RedirectURL}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("catalog: login canceled: %w", ctx.Err())
	}
}

// handleCallback validates the redirect and forwards the code or the
// failure. Only the first result is kept.
func handleCallback(w http.ResponseWriter, r *http.Request, state string, resultCh chan<- callbackResult) {
	q := r.URL.Query()

	if errCode := q.Get("error"); errCode != "" {
		http.Error(w, "Authentication failed. You can close this window.", http.StatusBadRequest)
		deliver(resultCh, callbackResult{err: &TokenExchangeError{
			StatusCode:  http.StatusBadRequest,
			Code:        errCode,
			Description: orDefault(q.Get("error_description"), defaultErrorDescription),
		}})
		return
	}

	if q.Get("state") != state {
		http.Error(w, "Invalid state parameter.", http.StatusBadRequest)
		deliver(resultCh, callbackResult{err: errors.New("catalog: invalid state parameter received")})
		return
	}

	code := q.Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code.", http.StatusBadRequest)
		deliver(resultCh, callbackResult{err: errors.New("catalog: callback missing authorization code")})
		return
	}

	fmt.Fprint(w, "Authentication successful! You can now close this browser window and return to the terminal.")
	deliver(resultCh, callbackResult{code: code})
}

func deliver(ch chan<- callbackResult, res callbackResult) {
	select {
	case ch <- res:
	default:
	}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", b), nil
}
