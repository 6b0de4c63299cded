package bootstrap

import (
	"log"
	"net/http"

	"github.com/SankaiAI/ZeroTask/internal/config"
	"github.com/SankaiAI/ZeroTask/internal/provider"

	"github.com/appleboy/go-httpclient"
)

// createOAuthHTTPClient creates the HTTP client shared by all provider
// adapters for token exchange, refresh and revocation calls.
func createOAuthHTTPClient(cfg *config.Config) *http.Client {
	client, err := httpclient.NewClient(
		httpclient.WithTimeout(cfg.OAuthTimeout),
	)
	if err != nil {
		log.Fatalf("Failed to create OAuth HTTP client: %v", err)
	}
	return client
}

// initializeProviderRegistry builds the adapter registry. Adapters are always
// registered; an adapter whose client credentials are missing reports
// NotConfigured at authorization time rather than disappearing from the API.
func initializeProviderRegistry(cfg *config.Config, httpClient *http.Client) *provider.Registry {
	google := provider.NewGoogleAdapter(provider.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL(),
		Scopes:       cfg.GoogleScopes,
	}, httpClient)

	slack := provider.NewSlackAdapter(provider.SlackConfig{
		ClientID:     cfg.SlackClientID,
		ClientSecret: cfg.SlackClientSecret,
		RedirectURL:  cfg.SlackRedirectURL(),
		Scopes:       cfg.SlackScopes,
	}, httpClient)

	registry := provider.NewRegistry(google, slack)

	switch {
	case google.Configured():
		log.Printf("Google OAuth configured: redirect=%s", cfg.GoogleRedirectURL())
	case cfg.GoogleClientID != "" || cfg.GoogleClientSecret != "":
		log.Printf("Warning: Google OAuth partially configured, CLIENT_ID or CLIENT_SECRET missing")
	}

	switch {
	case slack.Configured():
		log.Printf("Slack OAuth configured: redirect=%s", cfg.SlackRedirectURL())
	case cfg.SlackClientID != "" || cfg.SlackClientSecret != "":
		log.Printf("Warning: Slack OAuth partially configured, CLIENT_ID or CLIENT_SECRET missing")
	}

	return registry
}
