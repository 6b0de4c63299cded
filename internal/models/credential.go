package models

import (
	"time"
)

// Credential is the persisted record of a provider connection. At most one
// row exists per provider (unique index); re-authorization upserts in place,
// never appends.
//
// Token columns hold AES-GCM ciphertext only. Plaintext token material never
// reaches the database, logs, or error messages.
type Credential struct {
	ID       string   `gorm:"primaryKey"`
	Provider Provider `gorm:"uniqueIndex;not null;size:50"`

	EncryptedAccessToken  string `gorm:"type:text;not null"`
	EncryptedRefreshToken string `gorm:"type:text"` // Empty for providers whose grant has no refresh capability

	TokenType string     `gorm:"not null;default:'Bearer'"`
	ExpiresAt *time.Time // Nil means the token does not expire
	Scope     string     // Space-delimited granted scopes

	// UserInfo is an opaque JSON snapshot of profile/team metadata, stored
	// for display only. Not security-sensitive.
	UserInfo string `gorm:"type:text"`

	// IsActive is false once a decrypt or refresh failure has invalidated
	// the credential. The row stays for audit until revoke removes it, but
	// an inactive credential is never returned to callers.
	IsActive bool `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsExpired reports whether the access token is past (or within leeway of)
// its expiry. Credentials without an expiry never expire.
func (c *Credential) IsExpired(leeway time.Duration) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return time.Now().Add(leeway).After(*c.ExpiresAt)
}

// HasRefreshToken reports whether a refresh token was stored at grant time.
func (c *Credential) HasRefreshToken() bool {
	return c.EncryptedRefreshToken != ""
}

func (Credential) TableName() string {
	return "credentials"
}
