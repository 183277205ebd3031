package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const MaxDescriptionLength = 255

var (
	MaxTransactionAmount = decimal.RequireFromString("999999999.99")

	ErrInvalidAmount       = errors.New("amount must be greater than 0 and at most 999999999.99")
	ErrTooManyDecimals     = errors.New("amount must have at most 2 decimal places")
	ErrDescriptionTooLong  = errors.New("description must be at most 255 characters")
	ErrTransactionNoDate   = errors.New("transaction date is required")
	ErrTransactionNoParent = errors.New("transaction requires a user and a category")
)

// Transaction is a dated money movement of a user within a category
type Transaction struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_transactions_user_category_date" json:"user_id"`
	CategoryID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_transactions_user_category_date" json:"category_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(11,2);not null" json:"amount"`
	Date        time.Time       `gorm:"not null;index:idx_transactions_user_category_date" json:"date"`
	Description string          `gorm:"type:varchar(255)" json:"description"`
	Type        string          `gorm:"type:varchar(10);not null" json:"type"`
	IsDeleted   bool            `gorm:"not null;default:false;index" json:"is_deleted"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null" json:"updated_at"`

	User     User     `gorm:"foreignKey:UserID" json:"-"`
	Category Category `gorm:"foreignKey:CategoryID" json:"-"`
}

// ValidateAmount enforces 0 < amount <= 999999999.99 with at most two decimal places
func ValidateAmount(amount decimal.Decimal, max decimal.Decimal) error {
	if !amount.IsPositive() || amount.GreaterThan(max) {
		return ErrInvalidAmount
	}

	if !amount.Equal(amount.Round(2)) {
		return ErrTooManyDecimals
	}

	return nil
}

func (t *Transaction) Validate() error {
	if t.UserID == uuid.Nil || t.CategoryID == uuid.Nil {
		return ErrTransactionNoParent
	}

	if err := ValidateAmount(t.Amount, MaxTransactionAmount); err != nil {
		return err
	}

	if !IsValidType(t.Type) {
		return ErrInvalidType
	}

	if t.Date.IsZero() {
		return ErrTransactionNoDate
	}

	if len(t.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}

	return nil
}

// BudgetKey identifies the budget period this transaction counts against
func (t *Transaction) BudgetKey() BudgetKey {
	date := t.Date.UTC()
	return BudgetKey{
		UserID:     t.UserID,
		CategoryID: t.CategoryID,
		Year:       date.Year(),
		Month:      int(date.Month()),
	}
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	now := time.Now()
	if t.Date.IsZero() {
		t.Date = now
	}
	// Period sums compare dates as UTC
	t.Date = t.Date.UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}

	return t.Validate()
}

func (t *Transaction) TableName() string {
	return "transactions"
}
