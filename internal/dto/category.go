package dto

import (
	"time"

	"expense-tracker/internal/models"

	"github.com/google/uuid"
)

type CreateCategoryRequest struct {
	Name   string     `json:"name" validate:"required,max=255"`
	Type   string     `json:"type" validate:"required,category_type"`
	UserID *uuid.UUID `json:"user_id,omitempty"`
}

// UpdateCategoryRequest renames a category. Owner and type are immutable and are
// only decoded so that supplying them can be rejected.
type UpdateCategoryRequest struct {
	Name   string  `json:"name" validate:"required,max=255"`
	Type   *string `json:"type,omitempty"`
	UserID *string `json:"user_id,omitempty"`
}

type CategoryListQuery struct {
	PageQuery
	Type string `query:"type" validate:"omitempty,category_type"`
}

type CategoryResponse struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Type         string     `json:"type"`
	UserID       *uuid.UUID `json:"user_id"`
	IsPredefined bool       `json:"is_predefined"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func ToCategoryResponse(category *models.Category) CategoryResponse {
	return CategoryResponse{
		ID:           category.ID,
		Name:         category.Name,
		Type:         category.Type,
		UserID:       category.UserID,
		IsPredefined: category.IsPredefined,
		CreatedAt:    category.CreatedAt,
		UpdatedAt:    category.UpdatedAt,
	}
}

func ToCategoryResponses(categories []models.Category) []CategoryResponse {
	responses := make([]CategoryResponse, 0, len(categories))
	for i := range categories {
		responses = append(responses, ToCategoryResponse(&categories[i]))
	}
	return responses
}
