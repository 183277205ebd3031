package repositories

import (
	"errors"
	"fmt"
	"time"

	"expense-tracker/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrTokenNotFound = errors.New("token not found")
)

type activeTokenRepository struct {
	db *gorm.DB
}

// NewActiveTokenRepository creates a new active token repository
func NewActiveTokenRepository(db *gorm.DB) ActiveTokenRepositoryInterface {
	return &activeTokenRepository{db: db}
}

// Create registers an issued access token
func (r *activeTokenRepository) Create(token *models.ActiveToken) error {
	if token == nil {
		return errors.New("active token cannot be nil")
	}

	if err := r.db.Create(token).Error; err != nil {
		return fmt.Errorf("failed to create active token: %w", err)
	}

	return nil
}

// Exists reports whether the JTI belongs to an unexpired active token
func (r *activeTokenRepository) Exists(jti string) (bool, error) {
	var count int64

	err := r.db.Model(&models.ActiveToken{}).
		Where("jti = ? AND expires_at > ?", jti, time.Now()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up active token: %w", err)
	}

	return count > 0, nil
}

func (r *activeTokenRepository) DeleteByJTI(jti string) error {
	result := r.db.Where("jti = ?", jti).Delete(&models.ActiveToken{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete active token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotFound
	}

	return nil
}

// DeleteAllForUser invalidates every access token issued to the user
func (r *activeTokenRepository) DeleteAllForUser(userID uuid.UUID) (int64, error) {
	result := r.db.Where("user_id = ?", userID).Delete(&models.ActiveToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete active tokens for user: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// DeleteExpired removes expired access tokens
func (r *activeTokenRepository) DeleteExpired() (int64, error) {
	result := r.db.Where("expires_at < ?", time.Now()).Delete(&models.ActiveToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired active tokens: %w", result.Error)
	}

	return result.RowsAffected, nil
}
