package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActiveToken whitelists an issued access token by its JWT ID.
// An access token is only honored while its row exists.
type ActiveToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	JTI       string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"jti"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (at *ActiveToken) IsExpired(now time.Time) bool {
	return !now.Before(at.ExpiresAt)
}

func (at *ActiveToken) TableName() string {
	return "active_tokens"
}

func (at *ActiveToken) BeforeCreate(tx *gorm.DB) error {
	if at.ID == uuid.Nil {
		at.ID = uuid.New()
	}
	if at.CreatedAt.IsZero() {
		at.CreatedAt = time.Now()
	}
	return nil
}

// RefreshToken stores the SHA-256 of an issued refresh token. Tokens are
// single-use: refreshing revokes the presented token and issues a new pair.
type RefreshToken struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	TokenHash string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"-"`
	ExpiresAt time.Time  `gorm:"not null;index" json:"expires_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at,omitempty"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (rt *RefreshToken) IsValid(now time.Time) bool {
	return rt.RevokedAt == nil && now.Before(rt.ExpiresAt)
}

func (rt *RefreshToken) Revoke(now time.Time) {
	if rt.RevokedAt == nil {
		rt.RevokedAt = &now
	}
}

func (rt *RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if rt.ID == uuid.Nil {
		rt.ID = uuid.New()
	}
	if rt.CreatedAt.IsZero() {
		rt.CreatedAt = time.Now()
	}
	return nil
}
