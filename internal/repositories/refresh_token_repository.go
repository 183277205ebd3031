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
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenRevoked  = errors.New("refresh token already revoked")
)

type refreshTokenRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRefreshTokenRepository stores refresh tokens by the SHA-256 of their value
func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepositoryInterface {
	return &refreshTokenRepository{db: db, now: time.Now}
}

func (r *refreshTokenRepository) Create(token *models.RefreshToken) error {
	if token == nil {
		return errors.New("refresh token cannot be nil")
	}

	if err := r.db.Create(token).Error; err != nil {
		return fmt.Errorf("failed to create refresh token: %w", err)
	}

	return nil
}

func (r *refreshTokenRepository) GetByTokenHash(tokenHash string) (*models.RefreshToken, error) {
	token := &models.RefreshToken{}
	err := r.db.Where("token_hash = ?", tokenHash).Take(token).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrRefreshTokenNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	return token, nil
}

// Revoke marks one token revoked. A second revoke reports ErrRefreshTokenRevoked,
// which is how rotation notices a token replayed by two concurrent refreshes.
func (r *refreshTokenRepository) Revoke(tokenID uuid.UUID) error {
	revoked, err := r.revoke(r.db.Where("id = ?", tokenID))
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	if revoked == 0 {
		return ErrRefreshTokenRevoked
	}

	return nil
}

func (r *refreshTokenRepository) RevokeAllForUser(userID uuid.UUID) error {
	if _, err := r.revoke(r.db.Where("user_id = ?", userID)); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens for user: %w", err)
	}

	return nil
}

func (r *refreshTokenRepository) revoke(scope *gorm.DB) (int64, error) {
	result := scope.Model(&models.RefreshToken{}).
		Where("revoked_at IS NULL").
		Update("revoked_at", r.now())
	return result.RowsAffected, result.Error
}

func (r *refreshTokenRepository) DeleteExpired() (int64, error) {
	return r.delete(r.db.Where("expires_at < ?", r.now()), "expired")
}

// DeleteRevokedOlderThan removes tokens revoked before cutoff
func (r *refreshTokenRepository) DeleteRevokedOlderThan(cutoff time.Time) (int64, error) {
	return r.delete(r.db.Where("revoked_at IS NOT NULL AND revoked_at < ?", cutoff), "revoked")
}

func (r *refreshTokenRepository) delete(scope *gorm.DB, kind string) (int64, error) {
	result := scope.Delete(&models.RefreshToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete %s refresh tokens: %w", kind, result.Error)
	}

	return result.RowsAffected, nil
}
