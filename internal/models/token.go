package models

import (
	"time"
)

// Token categories and statuses
const (
	TokenCategoryAccess  = "access"
	TokenCategoryRefresh = "refresh"

	TokenStatusActive  = "active"
	TokenStatusRevoked = "revoked"
)

// SessionToken is the server-side record of an issued access or refresh
// token. Only the SHA-256 hash of the raw JWT is persisted.
type SessionToken struct {
	ID            string `gorm:"primaryKey"`
	TokenHash     string `gorm:"uniqueIndex;not null"`
	RawToken      string `gorm:"-"` // In-memory only; never persisted to DB
	TokenCategory string `gorm:"not null;default:'access';index"`
	Status        string `gorm:"not null;default:'active';index"`
	UserID        string `gorm:"not null;index"`
	ExpiresAt     time.Time
	CreatedAt     time.Time
	LastUsedAt    *time.Time `gorm:"index"` // Last time a refresh token minted a pair
	ParentTokenID string     `gorm:"index"` // Links rotated tokens to their refresh token
}

func (t *SessionToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsActive returns true if token status is 'active'
func (t *SessionToken) IsActive() bool {
	return t.Status == TokenStatusActive
}

// IsAccessToken returns true if token category is 'access'
func (t *SessionToken) IsAccessToken() bool {
	return t.TokenCategory == TokenCategoryAccess
}

// IsRefreshToken returns true if token category is 'refresh'
func (t *SessionToken) IsRefreshToken() bool {
	return t.TokenCategory == TokenCategoryRefresh
}
