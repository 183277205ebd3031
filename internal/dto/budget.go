package dto

import (
	"time"

	"expense-tracker/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateBudgetRequest struct {
	UserID     *uuid.UUID      `json:"user_id,omitempty"`
	CategoryID uuid.UUID       `json:"category_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount" validate:"money"`
	MonthYear  string          `json:"month_year" validate:"required,month_year"`
}

// UpdateBudgetRequest changes the amount only. The period fields are decoded so
// that supplying them can be rejected as read-only.
type UpdateBudgetRequest struct {
	Amount     *decimal.Decimal `json:"amount" validate:"required,money"`
	UserID     *string          `json:"user_id,omitempty"`
	CategoryID *string          `json:"category_id,omitempty"`
	MonthYear  *string          `json:"month_year,omitempty"`
}

// ReadOnlyFields lists the supplied fields that budgets do not allow to change
func (r *UpdateBudgetRequest) ReadOnlyFields() []string {
	var fields []string
	if r.UserID != nil {
		fields = append(fields, "user_id")
	}
	if r.CategoryID != nil {
		fields = append(fields, "category_id")
	}
	if r.MonthYear != nil {
		fields = append(fields, "month_year")
	}
	return fields
}

type BudgetListQuery struct {
	PageQuery
	CategoryID string `query:"category_id" validate:"omitempty,uuid"`
	MonthYear  string `query:"month_year" validate:"omitempty,month_year"`
}

// BudgetWithSpent pairs a budget with the debit total of its period
type BudgetWithSpent struct {
	Budget models.Budget
	Spent  decimal.Decimal
}

type BudgetResponse struct {
	ID             uuid.UUID         `json:"id"`
	UserID         uuid.UUID         `json:"user_id"`
	CategoryID     uuid.UUID         `json:"category_id"`
	Amount         decimal.Decimal   `json:"amount"`
	MonthYear      string            `json:"month_year"`
	SpentAmount    decimal.Decimal   `json:"spent_amount"`
	PercentageUsed decimal.Decimal   `json:"percentage_used"`
	LastAlertLevel models.AlertLevel `json:"last_alert_level"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func ToBudgetResponse(item *BudgetWithSpent) BudgetResponse {
	budget := &item.Budget
	return BudgetResponse{
		ID:             budget.ID,
		UserID:         budget.UserID,
		CategoryID:     budget.CategoryID,
		Amount:         budget.Amount.Round(2),
		MonthYear:      budget.MonthYear(),
		SpentAmount:    item.Spent.Round(2),
		PercentageUsed: budget.PercentageUsed(item.Spent).Round(2),
		LastAlertLevel: budget.LastAlertLevel,
		CreatedAt:      budget.CreatedAt,
		UpdatedAt:      budget.UpdatedAt,
	}
}

func ToBudgetResponses(items []BudgetWithSpent) []BudgetResponse {
	responses := make([]BudgetResponse, 0, len(items))
	for i := range items {
		responses = append(responses, ToBudgetResponse(&items[i]))
	}
	return responses
}
