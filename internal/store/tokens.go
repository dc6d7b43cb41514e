package store

import (
	"errors"
	"time"

	"github.com/tpri2322-commits/patient-digi-health-book/internal/models"

	"gorm.io/gorm"
)

// CreateTokenPair persists an access/refresh token pair atomically.
func (s *Store) CreateTokenPair(access, refresh *models.SessionToken) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(access).Error; err != nil {
			return err
		}
		return tx.Create(refresh).Error
	})
}

// CreateToken persists a single session token row.
func (s *Store) CreateToken(token *models.SessionToken) error {
	return s.db.Create(token).Error
}

// GetTokenByHash looks up a token by its stored hash.
func (s *Store) GetTokenByHash(tokenHash string) (*models.SessionToken, error) {
	var token models.SessionToken
	if err := s.db.Where("token_hash = ?", tokenHash).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &token, nil
}

// GetTokenByID looks up a token by primary key.
func (s *Store) GetTokenByID(tokenID string) (*models.SessionToken, error) {
	var token models.SessionToken
	if err := s.db.Where("id = ?", tokenID).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &token, nil
}

// RotateRefreshToken atomically retires a refresh token. The conditional
// UPDATE guarantees single use: of any number of concurrent rotations of
// the same token, exactly one sees RowsAffected == 1 and wins; the rest
// get ErrRefreshTokenUsed.
func (s *Store) RotateRefreshToken(tokenHash string, now time.Time) (*models.SessionToken, error) {
	var token models.SessionToken

	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.SessionToken{}).
			Where(
				"token_hash = ? AND token_category = ? AND status = ?",
				tokenHash, models.TokenCategoryRefresh, models.TokenStatusActive,
			).
			Updates(map[string]any{"status": models.TokenStatusRevoked, "last_used_at": &now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race, or the token never existed / was revoked.
			var exists models.SessionToken
			err := tx.Where("token_hash = ?", tokenHash).First(&exists).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRecordNotFound
			}
			if err != nil {
				return err
			}
			return ErrRefreshTokenUsed
		}
		return tx.Where("token_hash = ?", tokenHash).First(&token).Error
	})
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// RevokeToken marks a single token revoked by ID.
func (s *Store) RevokeToken(tokenID string) error {
	return s.db.Model(&models.SessionToken{}).
		Where("id = ?", tokenID).
		Update("status", models.TokenStatusRevoked).Error
}

// RevokeTokenByHash marks a single token revoked by hash.
func (s *Store) RevokeTokenByHash(tokenHash string) error {
	return s.db.Model(&models.SessionToken{}).
		Where("token_hash = ?", tokenHash).
		Update("status", models.TokenStatusRevoked).Error
}

// RevokeTokensByUserID revokes every active token a user holds.
func (s *Store) RevokeTokensByUserID(userID string) error {
	return s.db.Model(&models.SessionToken{}).
		Where("user_id = ? AND status = ?", userID, models.TokenStatusActive).
		Update("status", models.TokenStatusRevoked).Error
}

// GetTokensByUserID returns all tokens for a user, newest first.
func (s *Store) GetTokensByUserID(userID string) ([]models.SessionToken, error) {
	var tokens []models.SessionToken
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tokens).Error
	return tokens, err
}

// DeleteExpiredTokens removes tokens past their expiry.
func (s *Store) DeleteExpiredTokens() error {
	return s.db.Where("expires_at < ?", time.Now()).
		Delete(&models.SessionToken{}).Error
}

// CountActiveTokensByCategory counts unexpired active tokens of a category.
func (s *Store) CountActiveTokensByCategory(category string, now time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&models.SessionToken{}).
		Where("token_category = ? AND status = ? AND expires_at > ?",
			category, models.TokenStatusActive, now).
		Count(&count).Error
	return count, err
}
