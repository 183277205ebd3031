package dto

import (
	"time"

	"expense-tracker/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateTransactionRequest struct {
	UserID      *uuid.UUID      `json:"user_id,omitempty"`
	CategoryID  uuid.UUID       `json:"category_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"money"`
	Date        *time.Time      `json:"date,omitempty"`
	Description string          `json:"description" validate:"max=255"`
	Type        string          `json:"type" validate:"required,category_type"`
}

// UpdateTransactionRequest is a partial update; nil fields are left unchanged
type UpdateTransactionRequest struct {
	UserID      *uuid.UUID       `json:"user_id,omitempty"`
	CategoryID  *uuid.UUID       `json:"category_id,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty" validate:"omitempty,money"`
	Date        *time.Time       `json:"date,omitempty"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=255"`
	Type        *string          `json:"type,omitempty" validate:"omitempty,category_type"`
}

// TransactionListQuery holds the list filters. Dates accept RFC 3339 or YYYY-MM-DD.
type TransactionListQuery struct {
	PageQuery
	Type       string `query:"type" validate:"omitempty,category_type"`
	CategoryID string `query:"category_id" validate:"omitempty,uuid"`
	UserID     string `query:"user_id" validate:"omitempty,uuid"`
	StartDate  string `query:"start_date"`
	EndDate    string `query:"end_date"`
}

type TransactionResponse struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	CategoryID  uuid.UUID       `json:"category_id"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func ToTransactionResponse(transaction *models.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          transaction.ID,
		UserID:      transaction.UserID,
		CategoryID:  transaction.CategoryID,
		Amount:      transaction.Amount.Round(2),
		Date:        transaction.Date,
		Description: transaction.Description,
		Type:        transaction.Type,
		CreatedAt:   transaction.CreatedAt,
		UpdatedAt:   transaction.UpdatedAt,
	}
}

func ToTransactionResponses(transactions []models.Transaction) []TransactionResponse {
	responses := make([]TransactionResponse, 0, len(transactions))
	for i := range transactions {
		responses = append(responses, ToTransactionResponse(&transactions[i]))
	}
	return responses
}
