package store

import (
	"context"
	"testing"
	"time"

	"github.com/SankaiAI/ZeroTask/internal/models"
	"github.com/SankaiAI/ZeroTask/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	// Use in-memory SQLite database for testing
	s, err := New(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	return s
}

func testCredential(provider models.Provider) *models.Credential {
	expiry := time.Now().Add(time.Hour)
	return &models.Credential{
		Provider:              provider,
		EncryptedAccessToken:  "enc-access",
		EncryptedRefreshToken: "enc-refresh",
		TokenType:             "Bearer",
		ExpiresAt:             &expiry,
		Scope:                 "read write",
	}
}

func TestCredential_UpsertAndGet(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	cred := testCredential(models.ProviderGoogle)
	require.NoError(t, s.UpsertCredential(ctx, cred))
	assert.NotEmpty(t, cred.ID)

	got, err := s.GetCredential(ctx, models.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, "enc-access", got.EncryptedAccessToken)
	assert.True(t, got.IsActive)
}

func TestCredential_UpsertOverwritesSingleRow(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first := testCredential(models.ProviderGoogle)
	require.NoError(t, s.UpsertCredential(ctx, first))

	second := testCredential(models.ProviderGoogle)
	second.EncryptedAccessToken = "enc-access-2"
	require.NoError(t, s.UpsertCredential(ctx, second))

	// Still exactly one row for the provider
	var count int64
	require.NoError(t, s.db.Model(&models.Credential{}).
		Where("provider = ?", models.ProviderGoogle).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)

	got, err := s.GetCredential(ctx, models.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, "enc-access-2", got.EncryptedAccessToken)
	assert.Equal(t, first.ID, got.ID, "upsert must reuse the existing row")
}

func TestCredential_UpsertReactivates(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	cred := testCredential(models.ProviderSlack)
	require.NoError(t, s.UpsertCredential(ctx, cred))
	require.NoError(t, s.DeactivateCredential(ctx, models.ProviderSlack))

	again := testCredential(models.ProviderSlack)
	require.NoError(t, s.UpsertCredential(ctx, again))

	got, err := s.GetCredential(ctx, models.ProviderSlack)
	require.NoError(t, err)
	assert.True(t, got.IsActive, "re-authorization must reactivate the credential")
}

func TestCredential_GetNotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetCredential(context.Background(), models.ProviderGoogle)
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestCredential_UpdateTokens(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	cred := testCredential(models.ProviderGoogle)
	require.NoError(t, s.UpsertCredential(ctx, cred))
	before, err := s.GetCredential(ctx, models.ProviderGoogle)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond) // Ensure updated_at advances

	newExpiry := time.Now().Add(2 * time.Hour)

	t.Run("Keeps refresh token when omitted", func(t *testing.T) {
		err := s.UpdateCredentialTokens(ctx, models.ProviderGoogle, "enc-access-new", "", &newExpiry)
		require.NoError(t, err)

		got, err := s.GetCredential(ctx, models.ProviderGoogle)
		require.NoError(t, err)
		assert.Equal(t, "enc-access-new", got.EncryptedAccessToken)
		assert.Equal(t, "enc-refresh", got.EncryptedRefreshToken)
		assert.True(t, got.UpdatedAt.After(before.UpdatedAt))
	})

	t.Run("Replaces refresh token when provided", func(t *testing.T) {
		err := s.UpdateCredentialTokens(ctx, models.ProviderGoogle, "enc-access-3", "enc-refresh-2", nil)
		require.NoError(t, err)

		got, err := s.GetCredential(ctx, models.ProviderGoogle)
		require.NoError(t, err)
		assert.Equal(t, "enc-refresh-2", got.EncryptedRefreshToken)
		assert.Nil(t, got.ExpiresAt)
	})

	t.Run("Missing row", func(t *testing.T) {
		err := s.UpdateCredentialTokens(ctx, models.ProviderSlack, "x", "", nil)
		assert.ErrorIs(t, err, ErrCredentialNotFound)
	})
}

func TestCredential_Deactivate(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	cred := testCredential(models.ProviderGoogle)
	require.NoError(t, s.UpsertCredential(ctx, cred))

	require.NoError(t, s.DeactivateCredential(ctx, models.ProviderGoogle))

	got, err := s.GetCredential(ctx, models.ProviderGoogle)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	assert.ErrorIs(t,
		s.DeactivateCredential(ctx, models.ProviderSlack),
		ErrCredentialNotFound)
}

func TestCredential_DeleteIsIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	cred := testCredential(models.ProviderGoogle)
	require.NoError(t, s.UpsertCredential(ctx, cred))

	require.NoError(t, s.DeleteCredential(ctx, models.ProviderGoogle))
	_, err := s.GetCredential(ctx, models.ProviderGoogle)
	assert.ErrorIs(t, err, ErrCredentialNotFound)

	// Deleting again is a no-op, not an error
	require.NoError(t, s.DeleteCredential(ctx, models.ProviderGoogle))
}

func createTestState(t *testing.T, s *Store, provider models.Provider, ttl time.Duration) string {
	t.Helper()
	plain, err := util.CryptoRandomURLSafeString(32)
	require.NoError(t, err)
	state := &models.AuthorizationState{
		StateHash: util.SHA256Hex(plain),
		Provider:  provider,
		ExpiresAt: time.Now().Add(ttl),
	}
	require.NoError(t, s.CreateAuthorizationState(context.Background(), state))
	return plain
}

func TestState_ConsumeOnce(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	plain := createTestState(t, s, models.ProviderGoogle, 10*time.Minute)
	hash := util.SHA256Hex(plain)

	require.NoError(t, s.ConsumeState(ctx, hash))

	// Second consumption loses the race by definition
	assert.ErrorIs(t, s.ConsumeState(ctx, hash), ErrStateAlreadyConsumed)

	got, err := s.GetAuthorizationStateByHash(ctx, hash)
	require.NoError(t, err)
	assert.True(t, got.IsConsumed())
}

func TestState_UnknownHash(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetAuthorizationStateByHash(context.Background(), util.SHA256Hex("nope"))
	assert.ErrorIs(t, err, ErrStateNotFound)

	assert.ErrorIs(t,
		s.ConsumeState(context.Background(), util.SHA256Hex("nope")),
		ErrStateAlreadyConsumed)
}

func TestState_DeleteExpired(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	expired := createTestState(t, s, models.ProviderGoogle, -time.Minute)
	consumed := createTestState(t, s, models.ProviderSlack, 10*time.Minute)
	live := createTestState(t, s, models.ProviderGoogle, 10*time.Minute)

	require.NoError(t, s.ConsumeState(ctx, util.SHA256Hex(consumed)))

	purged, err := s.DeleteExpiredStates(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, purged)

	_, err = s.GetAuthorizationStateByHash(ctx, util.SHA256Hex(expired))
	assert.ErrorIs(t, err, ErrStateNotFound)

	_, err = s.GetAuthorizationStateByHash(ctx, util.SHA256Hex(live))
	assert.NoError(t, err)
}
