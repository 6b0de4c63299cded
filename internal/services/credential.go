package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/SankaiAI/ZeroTask/internal/encryption"
	"github.com/SankaiAI/ZeroTask/internal/metrics"
	"github.com/SankaiAI/ZeroTask/internal/models"
	"github.com/SankaiAI/ZeroTask/internal/provider"
	"github.com/SankaiAI/ZeroTask/internal/store"
)

// AuthorizationGrant is returned by BeginAuthorization.
type AuthorizationGrant struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

// CallbackResult reports a completed authorization for display.
type CallbackResult struct {
	Provider     models.Provider `json:"provider"`
	GrantedScope string          `json:"granted_scope"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
}

// RevokeResult reports a revocation. Success covers the local deletion,
// which always happens; RemoteRevoked records whether the provider-side
// call also succeeded.
type RevokeResult struct {
	Success       bool `json:"success"`
	RemoteRevoked bool `json:"remote_revoked"`
}

// ConnectionStatus describes a provider connection for display.
type ConnectionStatus struct {
	Provider      models.Provider `json:"provider"`
	Configured    bool            `json:"configured"`
	Authenticated bool            `json:"authenticated"`
	Scope         string          `json:"scope,omitempty"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	UserInfo      json.RawMessage `json:"user_info,omitempty"`
	ConnectedAt   *time.Time      `json:"connected_at,omitempty"`
}

// CredentialService orchestrates the OAuth credential lifecycle: it composes
// the provider adapters with the state registry, the cipher and the store,
// and owns the refresh policy.
//
// Per-provider state machine: Unconfigured → Unauthorized → Authorized →
// (Expired → Authorized via refresh) → Revoked. A decryption failure drops
// straight back to Unauthorized — a hard dead-end requiring fresh consent.
type CredentialService struct {
	store    *store.Store
	cipher   *encryption.Cipher
	states   *StateService
	registry *provider.Registry
	metrics  metrics.Recorder
	leeway   time.Duration // Refresh this far before the provider's expiry

	// One advisory lock per provider, created lazily, so at most one
	// refresh is in flight per provider while providers refresh
	// independently of each other.
	mu           sync.Mutex
	refreshLocks map[models.Provider]*sync.Mutex
}

func NewCredentialService(
	s *store.Store,
	cipher *encryption.Cipher,
	states *StateService,
	registry *provider.Registry,
	m metrics.Recorder,
	refreshLeeway time.Duration,
) *CredentialService {
	return &CredentialService{
		store:        s,
		cipher:       cipher,
		states:       states,
		registry:     registry,
		metrics:      m,
		leeway:       refreshLeeway,
		refreshLocks: make(map[models.Provider]*sync.Mutex),
	}
}

// BeginAuthorization issues a CSRF state and builds the provider's consent
// URL. No credential side effect.
func (s *CredentialService) BeginAuthorization(
	ctx context.Context,
	p models.Provider,
) (*AuthorizationGrant, error) {
	adapter, ok := s.registry.Get(p)
	if !ok {
		return nil, ErrUnknownProvider
	}
	if !adapter.Configured() {
		s.metrics.RecordAuthorizationStarted(p.String(), false)
		return nil, provider.ErrNotConfigured
	}

	state, err := s.states.Issue(ctx, p)
	if err != nil {
		s.metrics.RecordAuthorizationStarted(p.String(), false)
		return nil, err
	}

	authURL, err := adapter.AuthorizationURL(state)
	if err != nil {
		s.metrics.RecordAuthorizationStarted(p.String(), false)
		return nil, err
	}

	s.metrics.RecordAuthorizationStarted(p.String(), true)
	return &AuthorizationGrant{AuthorizationURL: authURL, State: state}, nil
}

// HandleCallback completes the authorization-code flow: validates and
// consumes the state, exchanges the code, encrypts the token material and
// upserts the provider's single credential row.
//
// A provider-reported error (user declined consent) yields
// AuthorizationDeniedError before any state is consumed or row touched.
func (s *CredentialService) HandleCallback(
	ctx context.Context,
	p models.Provider,
	code, state, errParam string,
) (*CallbackResult, error) {
	adapter, ok := s.registry.Get(p)
	if !ok {
		return nil, ErrUnknownProvider
	}

	if errParam != "" {
		s.metrics.RecordCallback(p.String(), metrics.CallbackOutcomeDenied)
		return nil, &AuthorizationDeniedError{Reason: errParam}
	}

	if err := s.states.ValidateAndConsume(ctx, state, p); err != nil {
		s.metrics.RecordCallback(p.String(), metrics.CallbackOutcomeRejected)
		return nil, err
	}

	if code == "" {
		s.metrics.RecordCallback(p.String(), metrics.CallbackOutcomeFailed)
		return nil, &provider.ExchangeError{Provider: p, Op: "exchange", Detail: "missing authorization code"}
	}

	payload, err := adapter.Exchange(ctx, code)
	if err != nil {
		s.metrics.RecordCallback(p.String(), metrics.CallbackOutcomeFailed)
		return nil, err
	}

	cred, err := s.encryptPayload(p, payload)
	if err != nil {
		s.metrics.RecordCallback(p.String(), metrics.CallbackOutcomeFailed)
		return nil, err
	}

	if err := s.store.UpsertCredential(ctx, cred); err != nil {
		s.metrics.RecordCallback(p.String(), metrics.CallbackOutcomeFailed)
		return nil, err
	}

	log.Printf("[Credential] %s authorized: scope=%q", p, payload.Scope)
	s.metrics.RecordCallback(p.String(), metrics.CallbackOutcomeCompleted)

	return &CallbackResult{
		Provider:     p,
		GrantedScope: cred.Scope,
		ExpiresAt:    cred.ExpiresAt,
	}, nil
}

// GetValidCredential returns a usable access token for the provider,
// transparently refreshing an expiring one. ErrNotAuthenticated is the
// normal "please authorize" signal: no credential, an inactive one, a
// failed decrypt and a failed or unsupported refresh all surface it — the
// broken row is deactivated on the way so the answer stays deterministic.
func (s *CredentialService) GetValidCredential(
	ctx context.Context,
	p models.Provider,
) (string, error) {
	cred, err := s.activeCredential(ctx, p)
	if err != nil {
		return "", err
	}

	if !cred.IsExpired(s.leeway) {
		token, err := s.cipher.Decrypt(cred.EncryptedAccessToken)
		if err != nil {
			return "", s.invalidate(ctx, p, "access token decryption failed")
		}
		s.metrics.RecordCredentialRead(p.String(), metrics.ReadResultOK)
		return token, nil
	}

	// Expired (or inside the leeway window): refresh under the provider's
	// advisory lock so concurrent callers produce exactly one round trip.
	lock := s.refreshLock(p)
	lock.Lock()
	defer lock.Unlock()

	// Re-read: a concurrent caller may have finished the refresh while we
	// waited for the lock.
	cred, err = s.activeCredential(ctx, p)
	if err != nil {
		return "", err
	}
	if !cred.IsExpired(s.leeway) {
		token, err := s.cipher.Decrypt(cred.EncryptedAccessToken)
		if err != nil {
			return "", s.invalidate(ctx, p, "access token decryption failed")
		}
		s.metrics.RecordCredentialRead(p.String(), metrics.ReadResultOK)
		return token, nil
	}

	return s.refresh(ctx, p, cred)
}

// refresh renews an expiring credential. Caller holds the provider lock.
func (s *CredentialService) refresh(
	ctx context.Context,
	p models.Provider,
	cred *models.Credential,
) (string, error) {
	adapter, ok := s.registry.Get(p)
	if !ok {
		return "", ErrUnknownProvider
	}

	if !adapter.SupportsRefresh() || !cred.HasRefreshToken() {
		// Permanently expiring grant: fresh authorization is the only way
		// forward.
		return "", s.invalidate(ctx, p, "credential expired with no refresh capability")
	}

	refreshToken, err := s.cipher.Decrypt(cred.EncryptedRefreshToken)
	if err != nil {
		return "", s.invalidate(ctx, p, "refresh token decryption failed")
	}

	started := time.Now()
	payload, err := adapter.Refresh(ctx, refreshToken)
	if err != nil {
		s.metrics.RecordTokenRefresh(p.String(), false, time.Since(started))
		if errors.Is(err, provider.ErrRefreshUnsupported) {
			return "", s.invalidate(ctx, p, "provider declared refresh unsupported")
		}
		return "", s.invalidate(ctx, p, "token refresh failed")
	}

	encryptedAccess, err := s.cipher.Encrypt(payload.AccessToken)
	if err != nil {
		s.metrics.RecordTokenRefresh(p.String(), false, time.Since(started))
		return "", s.invalidate(ctx, p, "failed to encrypt refreshed token")
	}
	var encryptedRefresh string
	if payload.RefreshToken != "" {
		encryptedRefresh, err = s.cipher.Encrypt(payload.RefreshToken)
		if err != nil {
			s.metrics.RecordTokenRefresh(p.String(), false, time.Since(started))
			return "", s.invalidate(ctx, p, "failed to encrypt refreshed token")
		}
	}

	err = s.store.UpdateCredentialTokens(ctx, p, encryptedAccess, encryptedRefresh, payload.ExpiresAt)
	if err != nil {
		s.metrics.RecordTokenRefresh(p.String(), false, time.Since(started))
		return "", s.invalidate(ctx, p, "failed to persist refreshed token")
	}

	s.metrics.RecordTokenRefresh(p.String(), true, time.Since(started))
	s.metrics.RecordCredentialRead(p.String(), metrics.ReadResultRefreshed)
	log.Printf("[Credential] %s access token refreshed", p)

	return payload.AccessToken, nil
}

// Revoke best-effort-revokes the token at the provider and unconditionally
// deletes the local row. The operator's intent — stop using this account —
// must be honorable even offline, so a failed remote call never blocks the
// local deletion and the result still reports success. Revoking a provider
// with no stored credential is a successful no-op.
func (s *CredentialService) Revoke(
	ctx context.Context,
	p models.Provider,
) (*RevokeResult, error) {
	cred, err := s.store.GetCredential(ctx, p)
	if err != nil {
		if errors.Is(err, store.ErrCredentialNotFound) {
			return &RevokeResult{Success: true}, nil
		}
		return nil, err
	}

	remoteRevoked := false
	if adapter, ok := s.registry.Get(p); ok {
		if token, decErr := s.cipher.Decrypt(cred.EncryptedAccessToken); decErr == nil {
			if revErr := adapter.Revoke(ctx, token); revErr != nil {
				log.Printf("[Credential] Remote revoke for %s failed (continuing with local deletion): %v", p, revErr)
			} else {
				remoteRevoked = true
			}
		} else {
			log.Printf("[Credential] Cannot decrypt %s token for remote revoke (continuing with local deletion)", p)
		}
	}

	if err := s.store.DeleteCredential(ctx, p); err != nil {
		return nil, err
	}

	log.Printf("[Credential] %s credential revoked (remote=%v)", p, remoteRevoked)
	s.metrics.RecordRevocation(p.String(), remoteRevoked)

	return &RevokeResult{Success: true, RemoteRevoked: remoteRevoked}, nil
}

// Status reports the connection state of an OAuth provider for display.
func (s *CredentialService) Status(
	ctx context.Context,
	p models.Provider,
) (*ConnectionStatus, error) {
	adapter, ok := s.registry.Get(p)
	if !ok {
		return nil, ErrUnknownProvider
	}

	status := &ConnectionStatus{
		Provider:   p,
		Configured: adapter.Configured(),
	}

	cred, err := s.store.GetCredential(ctx, p)
	if err != nil {
		if errors.Is(err, store.ErrCredentialNotFound) {
			return status, nil
		}
		return nil, err
	}

	status.Authenticated = cred.IsActive
	status.Scope = cred.Scope
	status.ExpiresAt = cred.ExpiresAt
	connectedAt := cred.CreatedAt
	status.ConnectedAt = &connectedAt
	if cred.UserInfo != "" {
		status.UserInfo = json.RawMessage(cred.UserInfo)
	}

	return status, nil
}

// activeCredential loads the provider's row and maps "missing" and
// "inactive" to ErrNotAuthenticated.
func (s *CredentialService) activeCredential(
	ctx context.Context,
	p models.Provider,
) (*models.Credential, error) {
	cred, err := s.store.GetCredential(ctx, p)
	if err != nil {
		if errors.Is(err, store.ErrCredentialNotFound) {
			s.metrics.RecordCredentialRead(p.String(), metrics.ReadResultNotAuthenticated)
			return nil, ErrNotAuthenticated
		}
		return nil, err
	}
	if !cred.IsActive {
		s.metrics.RecordCredentialRead(p.String(), metrics.ReadResultNotAuthenticated)
		return nil, ErrNotAuthenticated
	}
	return cred, nil
}

// invalidate deactivates a broken credential and returns
// ErrNotAuthenticated. The reason is logged, never surfaced: callers only
// learn that fresh authorization is needed.
func (s *CredentialService) invalidate(
	ctx context.Context,
	p models.Provider,
	reason string,
) error {
	log.Printf("[Credential] Invalidating %s credential: %s", p, reason)
	if err := s.store.DeactivateCredential(ctx, p); err != nil &&
		!errors.Is(err, store.ErrCredentialNotFound) {
		log.Printf("[Credential] Failed to deactivate %s credential: %v", p, err)
	}
	s.metrics.RecordCredentialRead(p.String(), metrics.ReadResultNotAuthenticated)
	return ErrNotAuthenticated
}

// encryptPayload turns an adapter token payload into a credential row with
// encrypted token material.
func (s *CredentialService) encryptPayload(
	p models.Provider,
	payload *provider.TokenPayload,
) (*models.Credential, error) {
	encryptedAccess, err := s.cipher.Encrypt(payload.AccessToken)
	if err != nil {
		return nil, err
	}

	var encryptedRefresh string
	if payload.RefreshToken != "" {
		encryptedRefresh, err = s.cipher.Encrypt(payload.RefreshToken)
		if err != nil {
			return nil, err
		}
	}

	tokenType := payload.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	return &models.Credential{
		Provider:              p,
		EncryptedAccessToken:  encryptedAccess,
		EncryptedRefreshToken: encryptedRefresh,
		TokenType:             tokenType,
		ExpiresAt:             payload.ExpiresAt,
		Scope:                 payload.Scope,
		UserInfo:              payload.UserInfo,
	}, nil
}

// refreshLock returns the advisory lock for a provider, creating it lazily.
func (s *CredentialService) refreshLock(p models.Provider) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.refreshLocks[p]
	if !ok {
		lock = &sync.Mutex{}
		s.refreshLocks[p] = lock
	}
	return lock
}
