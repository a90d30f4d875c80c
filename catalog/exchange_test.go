package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenServer(t *testing.T, status int, body string, seen *url.Values) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		if seen != nil {
			*seen = r.PostForm
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func testSettings(tokenURL string) Settings {
	return Settings{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080",
		TokenURL:     tokenURL,
	}
}

func TestExchangeSuccess(t *testing.T) {
	var form url.Values
	srv := newTokenServer(t, http.StatusOK,
		`{"access_token":"ya29.token","refresh_token":"1//refresh","token_type":"Bearer","expires_in":3599,"scope":"https://www.googleapis.com/auth/drive"}`,
		&form)

	ex := NewExchanger(testSettings(srv.URL), srv.Client(), nil)
	tok, err := ex.Exchange(context.Background(), "4/auth-code")
	require.NoError(t, err)

	assert.Equal(t, "ya29.token", tok.AccessToken)
	assert.Equal(t, "1//refresh", tok.RefreshToken)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.WithinDuration(t, time.Now().Add(3599*time.Second), tok.Expiry, time.Minute)
	assert.Equal(t, Scope, tok.Extra("scope"))

	assert.Equal(t, "4/auth-code", form.Get("code"))
	assert.Equal(t, "client-id", form.Get("client_id"))
	assert.Equal(t, "client-secret", form.Get("client_secret"))
	assert.Equal(t, "http://localhost:8080", form.Get("redirect_uri"))
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
}

func TestExchangeWithRedirectOverridesConfiguredURL(t *testing.T) {
	var form url.Values
	srv := newTokenServer(t, http.StatusOK, `{"access_token":"tok"}`, &form)

	ex := NewExchanger(testSettings(srv.URL), srv.Client(), nil)
	tok, err := ex.ExchangeWithRedirect(context.Background(), "code", "http://127.0.0.1:53124/")
	require.NoError(t, err)

	assert.Equal(t, "tok", tok.AccessToken)
	assert.True(t, tok.Expiry.IsZero())
	assert.Equal(t, "http://127.0.0.1:53124/", form.Get("redirect_uri"))
}

func TestExchangeExpiresInEncodings(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantExpiry bool
	}{
		{name: "number", body: `{"access_token":"tok","expires_in":3599}`, wantExpiry: true},
		{name: "numeric string", body: `{"access_token":"tok","expires_in":"3599"}`, wantExpiry: true},
		{name: "non numeric string", body: `{"access_token":"tok","expires_in":"soon"}`},
		{name: "null", body: `{"access_token":"tok","expires_in":null}`},
		{name: "absent", body: `{"access_token":"tok"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTokenServer(t, http.StatusOK, tt.body, nil)

			tok, err := NewExchanger(testSettings(srv.URL), srv.Client(), nil).Exchange(context.Background(), "code")
			require.NoError(t, err)
			assert.Equal(t, "tok", tok.AccessToken)

			if tt.wantExpiry {
				assert.WithinDuration(t, time.Now().Add(3599*time.Second), tok.Expiry, time.Minute)
			} else {
				assert.True(t, tok.Expiry.IsZero())
			}
		})
	}
}

func TestExchangeRejected(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		code        string
		description string
	}{
		{
			name:        "endpoint error fields",
			status:      http.StatusBadRequest,
			body:        `{"error":"invalid_grant","error_description":"Bad Request"}`,
			code:        "invalid_grant",
			description: "Bad Request",
		},
		{
			name:        "missing fields",
			status:      http.StatusUnauthorized,
			body:        `{}`,
			code:        "unknown_error",
			description: "no description provided",
		},
		{
			name:        "non json body",
			status:      http.StatusBadGateway,
			body:        `<html>bad gateway</html>`,
			code:        "unknown_error",
			description: "no description provided",
		},
		{
			name:        "error with an access token",
			status:      http.StatusForbidden,
			body:        `{"access_token":"ignored","error":"access_denied"}`,
			code:        "access_denied",
			description: "no description provided",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTokenServer(t, tt.status, tt.body, nil)

			tok, err := NewExchanger(testSettings(srv.URL), srv.Client(), nil).Exchange(context.Background(), "code")
			require.Error(t, err)
			assert.Nil(t, tok)

			var exErr *TokenExchangeError
			require.True(t, errors.As(err, &exErr))
			assert.Equal(t, tt.status, exErr.StatusCode)
			assert.Equal(t, tt.code, exErr.Code)
			assert.Equal(t, tt.description, exErr.Description)
		})
	}
}

func TestExchangeInvalidResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "no access token", body: `{"token_type":"Bearer","expires_in":3599}`},
		{name: "blank access token", body: `{"access_token":"   "}`},
		{name: "not json", body: `ok`},
		{name: "json array", body: `["tok"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTokenServer(t, http.StatusOK, tt.body, nil)

			_, err := NewExchanger(testSettings(srv.URL), srv.Client(), nil).Exchange(context.Background(), "code")

			var invalid *InvalidTokenResponseError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, tt.body, invalid.Body)
		})
	}
}

func TestExchangeUnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	tokenURL := srv.URL
	srv.Close()

	_, err := NewExchanger(testSettings(tokenURL), nil, nil).Exchange(context.Background(), "code")
	require.Error(t, err)

	var exErr *TokenExchangeError
	assert.False(t, errors.As(err, &exErr))
}

func TestNewExchangerDefaultsTokenURL(t *testing.T) {
	ex := NewExchanger(Settings{ClientID: "id"}, nil, nil)
	assert.Equal(t, "https://oauth2.googleapis.com/token", ex.settings.TokenURL)
}
