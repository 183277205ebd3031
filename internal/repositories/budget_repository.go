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
	ErrBudgetNotFound      = errors.New("budget not found")
	ErrBudgetAlreadyExists = errors.New("budget already exists for this category and month")
)

type budgetRepository struct {
	db *gorm.DB
}

// NewBudgetRepository creates a new budget repository
func NewBudgetRepository(db *gorm.DB) BudgetRepositoryInterface {
	return &budgetRepository{db: db}
}

func (r *budgetRepository) Create(budget *models.Budget) error {
	if budget == nil {
		return errors.New("budget cannot be nil")
	}

	if err := r.db.Create(budget).Error; err != nil {
		if isDuplicateKeyError(err) {
			return ErrBudgetAlreadyExists
		}
		return fmt.Errorf("failed to create budget: %w", err)
	}

	return nil
}

// GetByID retrieves a non-deleted budget
func (r *budgetRepository) GetByID(id uuid.UUID) (*models.Budget, error) {
	return r.first(r.db.Where("id = ?", id))
}

// GetByKey retrieves the live budget of a period
func (r *budgetRepository) GetByKey(key models.BudgetKey) (*models.Budget, error) {
	return r.first(r.db.Where("user_id = ? AND category_id = ? AND year = ? AND month = ?",
		key.UserID, key.CategoryID, key.Year, key.Month))
}

func (r *budgetRepository) first(query *gorm.DB) (*models.Budget, error) {
	var budget models.Budget

	if err := query.Scopes(notDeleted("budgets")).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBudgetNotFound
		}
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}

	return &budget, nil
}

// List returns non-deleted budgets ordered by most recent period first
func (r *budgetRepository) List(filters models.BudgetFilters) ([]models.Budget, int64, error) {
	var budgets []models.Budget
	var total int64

	query := r.db.Model(&models.Budget{}).Scopes(notDeleted("budgets"))

	if filters.OwnerID != nil {
		query = query.Where("user_id = ?", *filters.OwnerID)
	}

	if filters.CategoryID != nil {
		query = query.Where("category_id = ?", *filters.CategoryID)
	}

	if filters.Year > 0 && filters.Month > 0 {
		query = query.Where("year = ? AND month = ?", filters.Year, filters.Month)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count budgets: %w", err)
	}

	if err := query.Order("year DESC, month DESC, created_at DESC").
		Scopes(paginate(filters.Page)).
		Find(&budgets).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list budgets: %w", err)
	}

	return budgets, total, nil
}

// ListForPeriod returns every live budget of a month, used by the threshold sweep
func (r *budgetRepository) ListForPeriod(year, month int) ([]models.Budget, error) {
	var budgets []models.Budget

	err := r.db.Scopes(notDeleted("budgets")).
		Where("year = ? AND month = ?", year, month).
		Order("created_at ASC").
		Find(&budgets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets for period: %w", err)
	}

	return budgets, nil
}

// Exists reports whether a live budget already covers the key
func (r *budgetRepository) Exists(key models.BudgetKey, excludeID *uuid.UUID) (bool, error) {
	var count int64

	query := r.db.Model(&models.Budget{}).
		Scopes(notDeleted("budgets")).
		Where("user_id = ? AND category_id = ? AND year = ? AND month = ?",
			key.UserID, key.CategoryID, key.Year, key.Month)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check budget existence: %w", err)
	}

	return count > 0, nil
}

func (r *budgetRepository) UpdateAmount(id uuid.UUID, amount decimal.Decimal) error {
	if err := models.ValidateBudgetAmount(amount); err != nil {
		return err
	}

	result := r.db.Model(&models.Budget{}).
		Scopes(notDeleted("budgets")).
		Where("id = ?", id).
		Updates(map[string]interface{}{"amount": amount, "updated_at": time.Now()})
	if result.Error != nil {
		return fmt.Errorf("failed to update budget amount: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBudgetNotFound
	}

	return nil
}

// SaveAlertState persists the notification state only if the stored state still
// equals previous. It returns false when another evaluation got there first, in
// which case the caller must not send its alert.
func (r *budgetRepository) SaveAlertState(budget *models.Budget, previous models.AlertState) (bool, error) {
	if budget == nil {
		return false, errors.New("budget cannot be nil")
	}

	updates := map[string]interface{}{
		"last_warning_sent_at": budget.LastWarningSentAt,
		"was_below_warning":    budget.WasBelowWarning,
		"last_alert_level":     budget.LastAlertLevel,
		"updated_at":           time.Now(),
	}

	result := r.db.Model(&models.Budget{}).
		Where("id = ? AND was_below_warning = ? AND last_alert_level = ?",
			budget.ID, previous.WasBelowWarning, previous.LastAlertLevel).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to save budget alert state: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

func (r *budgetRepository) SoftDelete(id uuid.UUID) error {
	result := r.db.Model(&models.Budget{}).
		Scopes(notDeleted("budgets")).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_deleted": true, "updated_at": time.Now()})
	if result.Error != nil {
		return fmt.Errorf("failed to delete budget: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBudgetNotFound
	}

	return nil
}
