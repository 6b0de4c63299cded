package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SankaiAI/ZeroTask/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetCredential returns the credential row for a provider, active or not.
func (s *Store) GetCredential(
	ctx context.Context,
	provider models.Provider,
) (*models.Credential, error) {
	var cred models.Credential
	err := s.db.WithContext(ctx).
		Where("provider = ?", provider).
		First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCredentialNotFound
		}
		return nil, err
	}
	return &cred, nil
}

// UpsertCredential creates or overwrites the single credential row for a
// provider inside one transaction, so a concurrent reader never observes a
// half-written encrypted pair. Re-authorization always reactivates the row.
func (s *Store) UpsertCredential(ctx context.Context, cred *models.Credential) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Credential
		err := tx.Where("provider = ?", cred.Provider).First(&existing).Error

		switch {
		case err == nil:
			existing.EncryptedAccessToken = cred.EncryptedAccessToken
			existing.EncryptedRefreshToken = cred.EncryptedRefreshToken
			existing.TokenType = cred.TokenType
			existing.ExpiresAt = cred.ExpiresAt
			existing.Scope = cred.Scope
			existing.UserInfo = cred.UserInfo
			existing.IsActive = true
			if err := tx.Save(&existing).Error; err != nil {
				return fmt.Errorf("failed to update credential: %w", err)
			}
			*cred = existing
			return nil

		case errors.Is(err, gorm.ErrRecordNotFound):
			if cred.ID == "" {
				cred.ID = uuid.New().String()
			}
			cred.IsActive = true
			if err := tx.Create(cred).Error; err != nil {
				return fmt.Errorf("failed to create credential: %w", err)
			}
			return nil

		default:
			return fmt.Errorf("failed to query credential: %w", err)
		}
	})
}

// UpdateCredentialTokens replaces the encrypted token material after a
// refresh. An empty encryptedRefreshToken keeps the stored one: providers
// commonly omit the refresh token from refresh responses.
func (s *Store) UpdateCredentialTokens(
	ctx context.Context,
	provider models.Provider,
	encryptedAccessToken, encryptedRefreshToken string,
	expiresAt *time.Time,
) error {
	updates := map[string]interface{}{
		"encrypted_access_token": encryptedAccessToken,
		"expires_at":             expiresAt,
		"updated_at":             time.Now(),
	}
	if encryptedRefreshToken != "" {
		updates["encrypted_refresh_token"] = encryptedRefreshToken
	}

	res := s.db.WithContext(ctx).
		Model(&models.Credential{}).
		Where("provider = ?", provider).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update credential tokens: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

// DeactivateCredential marks a credential unusable after a decrypt or
// refresh failure. The row is kept for audit until revoked.
func (s *Store) DeactivateCredential(ctx context.Context, provider models.Provider) error {
	res := s.db.WithContext(ctx).
		Model(&models.Credential{}).
		Where("provider = ?", provider).
		Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("failed to deactivate credential: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

// DeleteCredential removes the credential row. Deleting a non-existent row
// is not an error: revocation is idempotent.
func (s *Store) DeleteCredential(ctx context.Context, provider models.Provider) error {
	return s.db.WithContext(ctx).
		Where("provider = ?", provider).
		Delete(&models.Credential{}).Error
}
