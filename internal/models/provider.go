package models

import "fmt"

// Provider identifies an external service the app can connect to.
type Provider string

const (
	// ProviderGoogle is the email provider (Gmail). Full authorization-code
	// grant with offline access; refresh tokens are issued and honored.
	ProviderGoogle Provider = "google"

	// ProviderSlack is the team-chat provider. User tokens obtained via
	// oauth.v2.access never expire and no refresh token is issued.
	ProviderSlack Provider = "slack"

	// ProviderGitHub is the code-hosting provider. Access uses a shared
	// IT-provisioned personal access token; there is no OAuth lifecycle.
	ProviderGitHub Provider = "github"
)

// OAuthProviders lists the providers that run the authorization-code flow.
// GitHub is excluded: its shared-secret credential has no lifecycle.
var OAuthProviders = []Provider{ProviderGoogle, ProviderSlack}

// ParseProvider validates a provider identifier from an untrusted source
// (URL path, query string).
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(s); p {
	case ProviderGoogle, ProviderSlack, ProviderGitHub:
		return p, nil
	default:
		return "", fmt.Errorf("unknown provider: %q", s)
	}
}

// IsOAuth reports whether the provider participates in the OAuth
// authorization-code lifecycle.
func (p Provider) IsOAuth() bool {
	return p == ProviderGoogle || p == ProviderSlack
}

func (p Provider) String() string {
	return string(p)
}
