package repositories

import (
	"errors"
	"fmt"
	"time"

	"expense-tracker/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
)

// transactionRepository implements TransactionRepositoryInterface
type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) TransactionRepositoryInterface {
	return &transactionRepository{
		db: db,
	}
}

func (r *transactionRepository) Create(transaction *models.Transaction) error {
	if transaction == nil {
		return errors.New("transaction cannot be nil")
	}

	if err := r.db.Create(transaction).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a non-deleted transaction
func (r *transactionRepository) GetByID(id uuid.UUID) (*models.Transaction, error) {
	var transaction models.Transaction

	if err := r.db.Scopes(notDeleted("transactions")).Where("id = ?", id).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &transaction, nil
}

// List returns non-deleted transactions matching the filters, newest date first
func (r *transactionRepository) List(filters models.TransactionFilters) ([]models.Transaction, int64, error) {
	var transactions []models.Transaction
	var total int64

	query := r.db.Model(&models.Transaction{}).Scopes(notDeleted("transactions"))

	switch {
	case filters.OwnerID != nil:
		query = query.Where("user_id = ?", *filters.OwnerID)
	case filters.UserID != nil:
		query = query.Where("user_id = ?", *filters.UserID)
	}

	if filters.CategoryID != nil {
		query = query.Where("category_id = ?", *filters.CategoryID)
	}

	if filters.Type != "" {
		query = query.Where("type = ?", filters.Type)
	}

	if filters.StartDate != nil {
		query = query.Where("date >= ?", filters.StartDate.UTC())
	}

	if filters.EndDate != nil {
		query = query.Where("date <= ?", filters.EndDate.UTC())
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	if err := query.Order("date DESC, created_at DESC").
		Scopes(paginate(filters.Page)).
		Find(&transactions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}

	return transactions, total, nil
}

// Update saves the mutable columns of a transaction
func (r *transactionRepository) Update(transaction *models.Transaction) error {
	if transaction == nil {
		return errors.New("transaction cannot be nil")
	}

	if err := transaction.Validate(); err != nil {
		return err
	}

	updates := map[string]interface{}{
		"user_id":     transaction.UserID,
		"category_id": transaction.CategoryID,
		"amount":      transaction.Amount,
		"date":        transaction.Date.UTC(),
		"description": transaction.Description,
		"type":        transaction.Type,
		"updated_at":  time.Now(),
	}

	result := r.db.Model(&models.Transaction{}).
		Scopes(notDeleted("transactions")).
		Where("id = ?", transaction.ID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTransactionNotFound
	}

	return nil
}

func (r *transactionRepository) SoftDelete(id uuid.UUID) error {
	result := r.db.Model(&models.Transaction{}).
		Scopes(notDeleted("transactions")).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_deleted": true, "updated_at": time.Now()})
	if result.Error != nil {
		return fmt.Errorf("failed to delete transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTransactionNotFound
	}

	return nil
}

// SumSpent totals the non-deleted debit transactions of a budget period
func (r *transactionRepository) SumSpent(key models.BudgetKey) (decimal.Decimal, error) {
	start, end := key.Period()

	var result struct {
		Total decimal.NullDecimal
	}

	err := r.db.Model(&models.Transaction{}).
		Select("SUM(amount) AS total").
		Scopes(notDeleted("transactions")).
		Where("user_id = ? AND category_id = ? AND type = ?", key.UserID, key.CategoryID, models.TypeDebit).
		Where("date >= ? AND date < ?", start, end).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum spent amount: %w", err)
	}

	if !result.Total.Valid {
		return decimal.Zero, nil
	}

	// SQLite sums decimals as floats
	return result.Total.Decimal.Round(2), nil
}
