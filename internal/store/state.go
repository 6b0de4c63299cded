package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SankaiAI/ZeroTask/internal/models"

	"gorm.io/gorm"
)

// CreateAuthorizationState records a newly issued state token (hashed).
func (s *Store) CreateAuthorizationState(
	ctx context.Context,
	state *models.AuthorizationState,
) error {
	return s.db.WithContext(ctx).Create(state).Error
}

// GetAuthorizationStateByHash looks up a state by its SHA-256 hash.
func (s *Store) GetAuthorizationStateByHash(
	ctx context.Context,
	stateHash string,
) (*models.AuthorizationState, error) {
	var state models.AuthorizationState
	err := s.db.WithContext(ctx).
		Where("state_hash = ?", stateHash).
		First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStateNotFound
		}
		return nil, err
	}
	return &state, nil
}

// ConsumeState marks a state consumed atomically (WHERE consumed_at IS NULL
// ensures only one concurrent callback wins; the loser receives
// ErrStateAlreadyConsumed).
func (s *Store) ConsumeState(ctx context.Context, stateHash string) error {
	now := time.Now()
	res := s.db.WithContext(ctx).
		Model(&models.AuthorizationState{}).
		Where("state_hash = ? AND consumed_at IS NULL", stateHash).
		Update("consumed_at", now)
	if res.Error != nil {
		return fmt.Errorf("failed to consume state: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStateAlreadyConsumed
	}
	return nil
}

// DeleteExpiredStates purges expired and consumed states. Maintenance only:
// correctness comes from the atomic consume check, not from purge timing.
func (s *Store) DeleteExpiredStates(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ? OR consumed_at IS NOT NULL", time.Now()).
		Delete(&models.AuthorizationState{})
	return res.RowsAffected, res.Error
}
