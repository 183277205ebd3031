package models

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Entry types shared by categories and transactions
const (
	TypeCredit = "credit"
	TypeDebit  = "debit"
)

const MaxCategoryNameLength = 255

var (
	ErrInvalidType         = errors.New("type must be credit or debit")
	ErrEmptyCategoryName   = errors.New("category name is empty after normalization")
	ErrCategoryNameTooLong = errors.New("category name must be at most 255 characters")
)

// Category groups transactions. A category owned by a staff user is predefined and
// visible to everyone; a nil UserID marks a predefined category whose owner was deleted.
type Category struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	Name         string     `gorm:"type:varchar(255);not null;index" json:"name"`
	UserID       *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Type         string     `gorm:"type:varchar(10);not null" json:"type"`
	IsPredefined bool       `gorm:"not null;default:false;index" json:"is_predefined"`
	IsDeleted    bool       `gorm:"not null;default:false;index" json:"is_deleted"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"-"`
}

func IsValidType(t string) bool {
	return t == TypeCredit || t == TypeDebit
}

// NormalizeCategoryName trims, lower-cases, strips punctuation and symbols,
// and collapses runs of whitespace into a single space. Underscores count as
// word characters and are kept.
func NormalizeCategoryName(name string) string {
	stripped := strings.Map(func(r rune) rune {
		if r != '_' && (unicode.IsPunct(r) || unicode.IsSymbol(r)) {
			return -1
		}
		return unicode.ToLower(r)
	}, name)

	return strings.Join(strings.Fields(stripped), " ")
}

// IsOwnedBy reports whether userID owns the category
func (c *Category) IsOwnedBy(userID uuid.UUID) bool {
	return c.UserID != nil && *c.UserID == userID
}

// IsAvailableTo reports whether userID may attach transactions or budgets to the category.
func (c *Category) IsAvailableTo(userID uuid.UUID) bool {
	return !c.IsDeleted && (c.IsPredefined || c.IsOwnedBy(userID))
}

func (c *Category) Validate() error {
	if c.Name == "" {
		return ErrEmptyCategoryName
	}

	if len(c.Name) > MaxCategoryNameLength {
		return ErrCategoryNameTooLong
	}

	if !IsValidType(c.Type) {
		return ErrInvalidType
	}

	return nil
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}

	return c.Validate()
}

func (c *Category) TableName() string {
	return "categories"
}
