package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SankaiAI/ZeroTask/internal/models"
)

var (
	// ErrNotConfigured is returned when a provider's client credentials have
	// not been provisioned. Operator/config error: the fix is "ask IT", not
	// a retry.
	ErrNotConfigured = errors.New("provider not configured")

	// ErrRefreshUnsupported is returned by Refresh on providers whose grant
	// never issues a refresh token. The credential is permanently expiring;
	// fresh authorization is required. This is a declared property of the
	// adapter, not something inferred from a missing response field.
	ErrRefreshUnsupported = errors.New("provider does not support token refresh")
)

// ExchangeError reports a failed network round trip to a provider's token or
// revoke endpoint. Detail carries the provider's error code or HTTP status,
// never token material.
type ExchangeError struct {
	Provider models.Provider
	Op       string // "exchange", "refresh" or "revoke"
	Detail   string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("%s %s failed: %s", e.Provider, e.Op, e.Detail)
}

// TokenPayload is the normalized result of a token exchange or refresh.
type TokenPayload struct {
	AccessToken  string
	RefreshToken string     // Empty when the grant carries no refresh capability
	TokenType    string     // Conventionally "Bearer"
	ExpiresAt    *time.Time // Nil means the token does not expire
	Scope        string     // Space-delimited granted scopes
	UserInfo     string     // Optional JSON profile snapshot, display only
}

// Adapter is the per-provider capability surface of the credential lifecycle.
// One concrete implementation exists per provider, selected through the
// Registry — never by string-keyed branching in the lifecycle manager.
type Adapter interface {
	// Name returns the provider identifier this adapter serves.
	Name() models.Provider

	// Configured reports whether client credentials are provisioned.
	Configured() bool

	// SupportsRefresh reports whether this provider's grant issues refresh
	// tokens at all.
	SupportsRefresh() bool

	// AuthorizationURL builds the provider's consent URL carrying the given
	// CSRF state. Fails with ErrNotConfigured when unprovisioned.
	AuthorizationURL(state string) (string, error)

	// Exchange trades an authorization code for tokens at the provider's
	// token endpoint.
	Exchange(ctx context.Context, code string) (*TokenPayload, error)

	// Refresh obtains a new access token using a refresh token. Providers
	// without refresh capability return ErrRefreshUnsupported.
	Refresh(ctx context.Context, refreshToken string) (*TokenPayload, error)

	// Revoke invalidates the access token at the provider, where a revoke
	// endpoint exists. Best effort: callers log failures and proceed with
	// local deletion regardless.
	Revoke(ctx context.Context, accessToken string) error
}

// Registry selects the adapter for a provider identifier.
type Registry struct {
	adapters map[models.Provider]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.Provider]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

// Get returns the adapter for a provider, if registered.
func (r *Registry) Get(p models.Provider) (Adapter, bool) {
	a, ok := r.adapters[p]
	return a, ok
}

// Names returns the registered provider identifiers.
func (r *Registry) Names() []models.Provider {
	names := make([]models.Provider, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}
