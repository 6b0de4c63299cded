package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/SankaiAI/ZeroTask/internal/models"
	"github.com/SankaiAI/ZeroTask/internal/store"
	"github.com/SankaiAI/ZeroTask/internal/util"
)

// stateTokenBytes is the entropy carried by each state token (256 bits).
const stateTokenBytes = 32

// StateService issues and single-use-validates the CSRF state tokens that
// bind an authorization request to its callback. Only the SHA-256 hash of a
// token is persisted.
type StateService struct {
	store *store.Store
	ttl   time.Duration
}

func NewStateService(s *store.Store, ttl time.Duration) *StateService {
	return &StateService{store: s, ttl: ttl}
}

// Issue generates a fresh state token for a provider and records it
// unconsumed. The plaintext token is returned to be embedded in the
// authorization URL; it is never stored.
func (s *StateService) Issue(ctx context.Context, provider models.Provider) (string, error) {
	plain, err := util.CryptoRandomURLSafeString(stateTokenBytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}

	record := &models.AuthorizationState{
		StateHash: util.SHA256Hex(plain),
		Provider:  provider,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	if err := s.store.CreateAuthorizationState(ctx, record); err != nil {
		return "", fmt.Errorf("failed to save authorization state: %w", err)
	}

	return plain, nil
}

// ValidateAndConsume checks a callback's state token and marks it consumed.
// Unknown, expired and already-consumed states all report ErrStateNotFound;
// a state issued for another provider reports ErrProviderMismatch without
// being consumed. The atomic consume in the store ensures two concurrent
// callbacks carrying the same state cannot both succeed.
func (s *StateService) ValidateAndConsume(
	ctx context.Context,
	plainState string,
	provider models.Provider,
) error {
	if plainState == "" {
		return ErrStateNotFound
	}

	hash := util.SHA256Hex(plainState)

	record, err := s.store.GetAuthorizationStateByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrStateNotFound) {
			return ErrStateNotFound
		}
		return fmt.Errorf("failed to look up authorization state: %w", err)
	}

	if record.IsExpired() || record.IsConsumed() {
		return ErrStateNotFound
	}
	if record.Provider != provider {
		return ErrProviderMismatch
	}

	if err := s.store.ConsumeState(ctx, hash); err != nil {
		if errors.Is(err, store.ErrStateAlreadyConsumed) {
			// Lost the race against a concurrent callback carrying the
			// same state; from this caller's view the state is gone.
			return ErrStateNotFound
		}
		return fmt.Errorf("failed to consume authorization state: %w", err)
	}

	return nil
}

// PurgeExpired removes expired and consumed states. Maintenance only —
// replay protection comes from the atomic consume, not from purge timing.
func (s *StateService) PurgeExpired(ctx context.Context) (int64, error) {
	purged, err := s.store.DeleteExpiredStates(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to purge authorization states: %w", err)
	}
	if purged > 0 {
		log.Printf("[State] Purged %d expired/consumed authorization states", purged)
	}
	return purged, nil
}
