package models

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultMaxFailedLoginAttempts = 5

	UsernameMinLength = 3
	UsernameMaxLength = 50
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

type User struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	Email               string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Username            string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	Name                string     `gorm:"type:varchar(255);not null" json:"name"`
	PasswordHash        string     `gorm:"type:varchar(255);not null" json:"-"`
	IsActive            bool       `gorm:"not null;default:true;index" json:"is_active"`
	IsStaff             bool       `gorm:"not null;default:false" json:"is_staff"`
	FailedLoginAttempts int        `gorm:"default:0" json:"-"`
	LockedAt            *time.Time `gorm:"index" json:"-"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	CreatedAt           time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"not null" json:"updated_at"`

	RefreshTokens []RefreshToken `gorm:"foreignKey:UserID" json:"-"`
	ActiveTokens  []ActiveToken  `gorm:"foreignKey:UserID" json:"-"`
}

// NewUser returns an active, non-staff user with normalized identifiers.
func NewUser(email, username, name, passwordHash string) *User {
	return &User{
		Email:        NormalizeEmail(email),
		Username:     strings.TrimSpace(username),
		Name:         strings.TrimSpace(name),
		PasswordHash: passwordHash,
		IsActive:     true,
	}
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}

	return u.Validate()
}

func (u *User) BeforeUpdate(tx *gorm.DB) error {
	// Map-based Updates carry an empty struct, only full saves are validated
	if tx.Statement.Dest != nil {
		if _, ok := tx.Statement.Dest.(map[string]interface{}); ok {
			return nil
		}
	}

	return u.Validate()
}

func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}

	if !emailRegex.MatchString(u.Email) {
		return errors.New("invalid email format")
	}

	if err := ValidateUsername(u.Username); err != nil {
		return err
	}

	if strings.TrimSpace(u.Name) == "" {
		return errors.New("name is required")
	}

	if len(u.Name) > 255 {
		return errors.New("name must be at most 255 characters")
	}

	return nil
}

// ValidateUsername enforces length and the letters, digits, underscore alphabet.
func ValidateUsername(username string) error {
	if username == "" {
		return errors.New("username is required")
	}

	if len(username) < UsernameMinLength || len(username) > UsernameMaxLength {
		return errors.New("username must be between 3 and 50 characters")
	}

	if !usernameRegex.MatchString(username) {
		return errors.New("username may only contain letters, digits and underscores")
	}

	return nil
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) IsLocked() bool {
	return u.LockedAt != nil
}

func (u *User) Lock() {
	now := time.Now()
	u.LockedAt = &now
}

func (u *User) Unlock() {
	u.LockedAt = nil
	u.FailedLoginAttempts = 0
}

// IncrementFailedAttempts records a failed login and locks the user once maxAttempts is reached.
func (u *User) IncrementFailedAttempts(maxAttempts int) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxFailedLoginAttempts
	}

	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= maxAttempts {
		u.Lock()
	}
}

func (u *User) ResetFailedAttempts() {
	u.FailedLoginAttempts = 0
}

func (u *User) UpdateLastLogin() {
	now := time.Now()
	u.LastLoginAt = &now
}

// Deactivate soft-deletes the user
func (u *User) Deactivate() {
	u.IsActive = false
}

// Role returns the role name carried in access tokens
func (u *User) Role() string {
	if u.IsStaff {
		return RoleStaff
	}
	return RoleUser
}

func (u *User) TableName() string {
	return "users"
}
