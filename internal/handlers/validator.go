package handlers

import (
	"expense-tracker/internal/validation"

	"github.com/labstack/echo/v4"
)

// NewValidator returns the shared validator with the money, month_year,
// username and category_type rules, for use as echo.Echo.Validator
func NewValidator() echo.Validator {
	return validation.GetValidator()
}
