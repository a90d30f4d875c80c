package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	defaultErrorCode        = "unknown_error"
	defaultErrorDescription = "no description provided"
)

// tokenResponse mirrors the token endpoint JSON body, success and failure
// fields together.
type tokenResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresIn        expiresIn `json:"expires_in"`
	Scope            string    `json:"scope"`
	Error            string    `json:"error"`
	ErrorDescription string    `json:"error_description"`
}

// expiresIn is the token lifetime in seconds. Providers send it as a number
// or as a numeric string; anything else decodes as unknown (zero).
type expiresIn int64

func (e *expiresIn) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		*e = 0
		return nil
	}

	i, err := n.Int64()
	if err != nil {
		*e = 0
		return nil
	}

	*e = expiresIn(i)

	return nil
}

// Exchanger turns authorization codes into credentials.
type Exchanger struct {
	settings   Settings
	httpClient *http.Client
	logger     *zap.Logger
}

// NewExchanger returns an Exchanger for s. A nil httpClient uses
// http.DefaultClient; a nil logger discards logs.
func NewExchanger(s Settings, httpClient *http.Client, logger *zap.Logger) *Exchanger {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if s.TokenURL == "" {
		s.TokenURL = s.OAuth2Config().Endpoint.TokenURL
	}

	return &Exchanger{settings: s, httpClient: httpClient, logger: logger}
}

// Exchange posts code to the token endpoint and returns the resulting
// credentials. Nothing is persisted.
func (e *Exchanger) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return e.ExchangeWithRedirect(ctx, code, e.settings.RedirectURL)
}

// ExchangeWithRedirect is Exchange for a code that was delivered to
// redirectURL rather than the configured one.
func (e *Exchanger) ExchangeWithRedirect(ctx context.Context, code, redirectURL string) (*oauth2.Token, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", e.settings.ClientID)
	form.Set("client_secret", e.settings.ClientSecret)
	form.Set("redirect_uri", redirectURL)
	form.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.settings.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("catalog: creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	e.logger.Debug("exchanging authorization code", zap.String("token_url", e.settings.TokenURL))

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: requesting token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("catalog: reading token response: %w", err)
	}

	var parsed tokenResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		exErr := &TokenExchangeError{
			StatusCode:  resp.StatusCode,
			Code:        orDefault(parsed.Error, defaultErrorCode),
			Description: orDefault(parsed.ErrorDescription, defaultErrorDescription),
		}
		e.logger.Warn("token exchange rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("error", exErr.Code),
		)
		return nil, exErr
	}

	if decodeErr != nil || strings.TrimSpace(parsed.AccessToken) == "" {
		return nil, &InvalidTokenResponseError{Body: string(body)}
	}

	tok := &oauth2.Token{
		AccessToken:  parsed.AccessToken,
		TokenType:    parsed.TokenType,
		RefreshToken: parsed.RefreshToken,
	}
	if parsed.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second)
	}
	if parsed.Scope != "" {
		tok = tok.WithExtra(map[string]any{"scope": parsed.Scope})
	}

	e.logger.Info("token exchange successful",
		zap.Time("expiry", tok.Expiry),
		zap.Bool("refreshable", tok.RefreshToken != ""),
	)

	return tok, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
