package validation

import (
	"reflect"
	"strings"
	"sync"

	"expense-tracker/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Validator wraps the go-playground validator with custom rules and error formatting
type Validator struct {
	validate *validator.Validate
}

var (
	instance *Validator
	once     sync.Once
)

// GetValidator returns the shared validator instance
func GetValidator() *Validator {
	once.Do(func() {
		instance = NewValidator()
	})
	return instance
}

// NewValidator creates a new validator instance with custom rules and configuration
func NewValidator() *Validator {
	v := validator.New()

	// Decimals are validated through their canonical string form
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("money", validateMoney)
	_ = v.RegisterValidation("month_year", validateMonthYear)
	_ = v.RegisterValidation("username", validateUsername)
	_ = v.RegisterValidation("category_type", validateCategoryType)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
		}
		return name
	})

	return &Validator{validate: v}
}

// Struct validates a struct against its validate tags
func (v *Validator) Struct(s interface{}) error {
	return v.validate.Struct(s)
}

// Validate satisfies echo.Validator
func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// validateMoney accepts a positive amount with at most two decimal places.
// Range limits differ between transactions and budgets and are checked by the models.
func validateMoney(fl validator.FieldLevel) bool {
	amount, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}

	return amount.IsPositive() && amount.Equal(amount.Round(2))
}

// validateMonthYear accepts M-YYYY or MM-YYYY with a month of 1-12 and a year of 2000-2100
func validateMonthYear(fl validator.FieldLevel) bool {
	_, _, err := models.ParseMonthYear(fl.Field().String())
	return err == nil
}

func validateUsername(fl validator.FieldLevel) bool {
	return models.ValidateUsername(fl.Field().String()) == nil
}

func validateCategoryType(fl validator.FieldLevel) bool {
	return models.IsValidType(fl.Field().String())
}
