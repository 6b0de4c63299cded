package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SankaiAI/ZeroTask/internal/models"
	"github.com/SankaiAI/ZeroTask/internal/store"
	"github.com/SankaiAI/ZeroTask/internal/util"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	return s
}

func TestStateService_IssueProducesDistinctTokens(t *testing.T) {
	s := setupTestStore(t)
	states := NewStateService(s, 10*time.Minute)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		token, err := states.Issue(ctx, models.ProviderGoogle)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(token), 43)
		assert.False(t, seen[token], "state token repeated")
		seen[token] = true
	}
}

func TestStateService_IssueStoresHashOnly(t *testing.T) {
	s := setupTestStore(t)
	states := NewStateService(s, 10*time.Minute)
	ctx := context.Background()

	token, err := states.Issue(ctx, models.ProviderGoogle)
	require.NoError(t, err)

	// The plaintext token must not be findable by its own value, only by
	// its hash.
	_, err = s.GetAuthorizationStateByHash(ctx, token)
	assert.ErrorIs(t, err, store.ErrStateNotFound)

	row, err := s.GetAuthorizationStateByHash(ctx, util.SHA256Hex(token))
	require.NoError(t, err)
	assert.Equal(t, models.ProviderGoogle, row.Provider)
	assert.False(t, row.IsConsumed())
}

func TestStateService_ValidateAndConsume(t *testing.T) {
	s := setupTestStore(t)
	states := NewStateService(s, 10*time.Minute)
	ctx := context.Background()

	token, err := states.Issue(ctx, models.ProviderGoogle)
	require.NoError(t, err)

	require.NoError(t, states.ValidateAndConsume(ctx, token, models.ProviderGoogle))

	t.Run("replay is rejected", func(t *testing.T) {
		err := states.ValidateAndConsume(ctx, token, models.ProviderGoogle)
		assert.ErrorIs(t, err, ErrStateNotFound)
	})
}

func TestStateService_UnknownState(t *testing.T) {
	s := setupTestStore(t)
	states := NewStateService(s, 10*time.Minute)
	ctx := context.Background()

	err := states.ValidateAndConsume(ctx, "never-issued", models.ProviderGoogle)
	assert.ErrorIs(t, err, ErrStateNotFound)

	err = states.ValidateAndConsume(ctx, "", models.ProviderGoogle)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestStateService_ExpiredState(t *testing.T) {
	s := setupTestStore(t)
	states := NewStateService(s, -time.Minute)
	ctx := context.Background()

	token, err := states.Issue(ctx, models.ProviderGoogle)
	require.NoError(t, err)

	err = states.ValidateAndConsume(ctx, token, models.ProviderGoogle)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestStateService_ProviderMismatchLeavesStateIntact(t *testing.T) {
	s := setupTestStore(t)
	states := NewStateService(s, 10*time.Minute)
	ctx := context.Background()

	token, err := states.Issue(ctx, models.ProviderGoogle)
	require.NoError(t, err)

	err = states.ValidateAndConsume(ctx, token, models.ProviderSlack)
	assert.ErrorIs(t, err, ErrProviderMismatch)

	// The mismatch must not consume the state: the correct provider still
	// succeeds afterwards.
	row, err := s.GetAuthorizationStateByHash(ctx, util.SHA256Hex(token))
	require.NoError(t, err)
	assert.False(t, row.IsConsumed())

	require.NoError(t, states.ValidateAndConsume(ctx, token, models.ProviderGoogle))
}

func TestStateService_PurgeExpired(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	expired := NewStateService(s, -time.Minute)
	fresh := NewStateService(s, 10*time.Minute)

	_, err := expired.Issue(ctx, models.ProviderGoogle)
	require.NoError(t, err)
	_, err = expired.Issue(ctx, models.ProviderSlack)
	require.NoError(t, err)
	keep, err := fresh.Issue(ctx, models.ProviderGoogle)
	require.NoError(t, err)

	purged, err := fresh.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)

	require.NoError(t, fresh.ValidateAndConsume(ctx, keep, models.ProviderGoogle))
}
