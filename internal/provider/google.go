package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/SankaiAI/ZeroTask/internal/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleRevokeURL = "https://oauth2.googleapis.com/revoke"

// GoogleConfig contains configuration for the Google (Gmail) adapter.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// Endpoint and RevokeURL may be overridden in tests; zero values use
	// Google's production endpoints.
	Endpoint  oauth2.Endpoint
	RevokeURL string
}

// GoogleAdapter runs the Gmail authorization-code flow with offline access.
// Google issues refresh tokens, so expired access tokens are renewable
// without user interaction.
type GoogleAdapter struct {
	config     *oauth2.Config
	revokeURL  string
	httpClient *http.Client
}

func NewGoogleAdapter(cfg GoogleConfig, httpClient *http.Client) *GoogleAdapter {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = google.Endpoint
	}
	revokeURL := cfg.RevokeURL
	if revokeURL == "" {
		revokeURL = googleRevokeURL
	}

	return &GoogleAdapter{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     endpoint,
		},
		revokeURL:  revokeURL,
		httpClient: httpClient,
	}
}

func (a *GoogleAdapter) Name() models.Provider {
	return models.ProviderGoogle
}

func (a *GoogleAdapter) Configured() bool {
	return a.config.ClientID != "" && a.config.ClientSecret != ""
}

func (a *GoogleAdapter) SupportsRefresh() bool {
	return true
}

// AuthorizationURL builds the consent URL. prompt=consent forces the consent
// screen so Google re-issues a refresh token on re-authorization.
func (a *GoogleAdapter) AuthorizationURL(state string) (string, error) {
	if !a.Configured() {
		return "", ErrNotConfigured
	}
	return a.config.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	), nil
}

func (a *GoogleAdapter) Exchange(ctx context.Context, code string) (*TokenPayload, error) {
	if !a.Configured() {
		return nil, ErrNotConfigured
	}

	token, err := a.config.Exchange(a.oauthContext(ctx), code)
	if err != nil {
		return nil, &ExchangeError{
			Provider: a.Name(),
			Op:       "exchange",
			Detail:   oauthErrorDetail(err),
		}
	}

	return a.payloadFromToken(token), nil
}

func (a *GoogleAdapter) Refresh(ctx context.Context, refreshToken string) (*TokenPayload, error) {
	if !a.Configured() {
		return nil, ErrNotConfigured
	}

	source := a.config.TokenSource(a.oauthContext(ctx), &oauth2.Token{
		RefreshToken: refreshToken,
	})
	token, err := source.Token()
	if err != nil {
		return nil, &ExchangeError{
			Provider: a.Name(),
			Op:       "refresh",
			Detail:   oauthErrorDetail(err),
		}
	}

	return a.payloadFromToken(token), nil
}

// Revoke posts to Google's revocation endpoint. The token travels in the
// form body, never in a URL that could end up in logs.
func (a *GoogleAdapter) Revoke(ctx context.Context, accessToken string) error {
	form := url.Values{"token": {accessToken}}
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		a.revokeURL,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return fmt.Errorf("failed to create revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client().Do(req)
	if err != nil {
		return &ExchangeError{Provider: a.Name(), Op: "revoke", Detail: "request failed"}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &ExchangeError{
			Provider: a.Name(),
			Op:       "revoke",
			Detail:   resp.Status,
		}
	}
	return nil
}

func (a *GoogleAdapter) payloadFromToken(token *oauth2.Token) *TokenPayload {
	payload := &TokenPayload{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.Type(),
		Scope:        strings.Join(a.config.Scopes, " "),
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		payload.ExpiresAt = &expiry
	}
	if granted, ok := token.Extra("scope").(string); ok && granted != "" {
		payload.Scope = granted
	}
	return payload
}

// oauthContext injects the configured HTTP client (which carries the OAuth
// timeout) into the x/oauth2 machinery.
func (a *GoogleAdapter) oauthContext(ctx context.Context) context.Context {
	if a.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

func (a *GoogleAdapter) client() *http.Client {
	if a.httpClient != nil {
		return a.httpClient
	}
	return http.DefaultClient
}

// oauthErrorDetail extracts a loggable summary from an x/oauth2 error
// without reproducing the response body, which may embed token material.
func oauthErrorDetail(err error) string {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.ErrorCode != "" {
			return retrieveErr.ErrorCode
		}
		return retrieveErr.Response.Status
	}
	return "token endpoint request failed"
}
