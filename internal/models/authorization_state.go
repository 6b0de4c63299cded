package models

import "time"

// AuthorizationState binds an authorization request to its callback (CSRF
// protection). States are short-lived (default 10 minutes) and single-use.
//
// Only the SHA-256 hash of the state token is stored; the plaintext travels
// solely in the authorization URL and callback query string.
type AuthorizationState struct {
	ID        uint     `gorm:"primaryKey;autoIncrement"`
	StateHash string   `gorm:"uniqueIndex;not null"` // SHA256(plainState)
	Provider  Provider `gorm:"not null;index;size:50"`

	ExpiresAt  time.Time
	ConsumedAt *time.Time // Set atomically upon callback; prevents replay
	CreatedAt  time.Time
}

func (s *AuthorizationState) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

func (s *AuthorizationState) IsConsumed() bool {
	return s.ConsumedAt != nil
}

func (AuthorizationState) TableName() string {
	return "authorization_states"
}
