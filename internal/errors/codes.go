package errors

import "net/http"

// ErrorCode represents a standardized error code used throughout the API
type ErrorCode string

// Authentication error codes (AUTH_*)
const (
	AuthInvalidCredentials     ErrorCode = "AUTH_001"
	AuthMissingToken           ErrorCode = "AUTH_002"
	AuthExpiredToken           ErrorCode = "AUTH_003"
	AuthInvalidTokenFormat     ErrorCode = "AUTH_004"
	AuthInsufficientPermission ErrorCode = "AUTH_005"
	AuthAccountLocked          ErrorCode = "AUTH_006"
	AuthInvalidRefreshToken    ErrorCode = "AUTH_007"
	AuthInvalidResetToken      ErrorCode = "AUTH_008"
)

// Validation error codes (VALIDATION_*)
const (
	ValidationGeneral       ErrorCode = "VALIDATION_001"
	ValidationRequiredField ErrorCode = "VALIDATION_002"
	ValidationInvalidFormat ErrorCode = "VALIDATION_003"
	ValidationOutOfRange    ErrorCode = "VALIDATION_004"
	ValidationInvalidEmail  ErrorCode = "VALIDATION_005"
	ValidationInvalidDate   ErrorCode = "VALIDATION_006"
	ValidationReadOnlyField ErrorCode = "VALIDATION_007"
	ValidationWeakPassword  ErrorCode = "VALIDATION_008"
)

// User error codes (USER_*)
const (
	UserNotFound         ErrorCode = "USER_001"
	UserAlreadyExists    ErrorCode = "USER_002"
	UserInactive         ErrorCode = "USER_003"
	UserInvalidID        ErrorCode = "USER_004"
	UserPageNotFound     ErrorCode = "USER_005"
	UserIncorrectPass    ErrorCode = "USER_006"
	UserSamePassword     ErrorCode = "USER_007"
	UserEmailNotFound    ErrorCode = "USER_008"
	UserPasswordRequired ErrorCode = "USER_009"
)

// Category error codes (CATEGORY_*)
const (
	CategoryNotFound      ErrorCode = "CATEGORY_001"
	CategoryAlreadyExists ErrorCode = "CATEGORY_002"
	CategoryInvalidName   ErrorCode = "CATEGORY_003"
	CategoryInvalidType   ErrorCode = "CATEGORY_004"
	CategoryForbidden     ErrorCode = "CATEGORY_005"
)

// Transaction error codes (TRANSACTION_*)
const (
	TransactionNotFound         ErrorCode = "TRANSACTION_001"
	TransactionInvalidAmount    ErrorCode = "TRANSACTION_002"
	TransactionCategoryMismatch ErrorCode = "TRANSACTION_003"
	TransactionInvalidCategory  ErrorCode = "TRANSACTION_004"
	TransactionForbidden        ErrorCode = "TRANSACTION_005"
	TransactionInvalidType      ErrorCode = "TRANSACTION_006"
)

// Budget error codes (BUDGET_*)
const (
	BudgetNotFound        ErrorCode = "BUDGET_001"
	BudgetAlreadyExists   ErrorCode = "BUDGET_002"
	BudgetInvalidMonth    ErrorCode = "BUDGET_003"
	BudgetPastMonth       ErrorCode = "BUDGET_004"
	BudgetInvalidCategory ErrorCode = "BUDGET_005"
	BudgetInvalidAmount   ErrorCode = "BUDGET_006"
	BudgetForbidden       ErrorCode = "BUDGET_007"
)

// System error codes (SYSTEM_*)
const (
	SystemInternalError      ErrorCode = "SYSTEM_001"
	SystemDatabaseError      ErrorCode = "SYSTEM_002"
	SystemServiceUnavailable ErrorCode = "SYSTEM_003"
	SystemConfigurationError ErrorCode = "SYSTEM_004"
	SystemUnexpectedError    ErrorCode = "SYSTEM_005"
	SystemRateLimitExceeded  ErrorCode = "SYSTEM_006"
)

type codeInfo struct {
	status  int
	message string
}

// catalog holds the HTTP status and default message of every registered code
var catalog = map[ErrorCode]codeInfo{
	AuthInvalidCredentials:     {http.StatusUnauthorized, "Invalid username or password"},
	AuthMissingToken:           {http.StatusUnauthorized, "Authorization token is required"},
	AuthExpiredToken:           {http.StatusUnauthorized, "Authorization token has expired"},
	AuthInvalidTokenFormat:     {http.StatusUnauthorized, "Invalid authorization token format"},
	AuthInsufficientPermission: {http.StatusForbidden, "Insufficient permissions to access this resource"},
	AuthAccountLocked:          {http.StatusLocked, "Account is locked due to too many failed login attempts"},
	AuthInvalidRefreshToken:    {http.StatusUnauthorized, "Invalid or expired refresh token"},
	AuthInvalidResetToken:      {http.StatusBadRequest, "Invalid or expired token."},

	ValidationGeneral:       {http.StatusBadRequest, "Validation failed"},
	ValidationRequiredField: {http.StatusBadRequest, "Required field is missing"},
	ValidationInvalidFormat: {http.StatusBadRequest, "Invalid field format"},
	ValidationOutOfRange:    {http.StatusBadRequest, "Field value is out of allowed range"},
	ValidationInvalidEmail:  {http.StatusBadRequest, "Invalid email address format"},
	ValidationInvalidDate:   {http.StatusBadRequest, "Invalid date format or range"},
	ValidationReadOnlyField: {http.StatusBadRequest, "Field cannot be modified"},
	ValidationWeakPassword:  {http.StatusBadRequest, "Password does not meet the password policy"},

	UserNotFound:         {http.StatusNotFound, "User not found"},
	UserAlreadyExists:    {http.StatusConflict, "A user with this email or username already exists"},
	UserInactive:         {http.StatusForbidden, "User is inactive"},
	UserInvalidID:        {http.StatusBadRequest, "Invalid user ID format"},
	UserPageNotFound:     {http.StatusNotFound, "This page not found."},
	UserIncorrectPass:    {http.StatusBadRequest, "Incorrect password"},
	UserSamePassword:     {http.StatusBadRequest, "New password must differ from the current password"},
	UserEmailNotFound:    {http.StatusNotFound, "No user is registered with this email"},
	UserPasswordRequired: {http.StatusBadRequest, "Password is required."},

	CategoryNotFound:      {http.StatusNotFound, "Category not found"},
	CategoryAlreadyExists: {http.StatusConflict, "A category with this name and type already exists"},
	CategoryInvalidName:   {http.StatusBadRequest, "Category name is empty after normalization"},
	CategoryInvalidType:   {http.StatusBadRequest, "Category type must be credit or debit"},
	CategoryForbidden:     {http.StatusForbidden, "You do not have permission to modify this category"},

	TransactionNotFound:         {http.StatusNotFound, "Transaction not found"},
	TransactionInvalidAmount:    {http.StatusBadRequest, "Amount must be greater than 0 and at most 999999999.99"},
	TransactionCategoryMismatch: {http.StatusBadRequest, "Category type does not match transaction type"},
	TransactionInvalidCategory:  {http.StatusBadRequest, "Category does not exist or is not available to this user"},
	TransactionForbidden:        {http.StatusForbidden, "You do not have permission to access this transaction"},
	TransactionInvalidType:      {http.StatusBadRequest, "Transaction type must be credit or debit"},

	BudgetNotFound:        {http.StatusNotFound, "Budget not found"},
	BudgetAlreadyExists:   {http.StatusConflict, "A budget for this category and month already exists"},
	BudgetInvalidMonth:    {http.StatusBadRequest, "month_year must be in M-YYYY format with a month between 1 and 12 and a year between 2000 and 2100"},
	BudgetPastMonth:       {http.StatusBadRequest, "Budgets cannot be created for past months"},
	BudgetInvalidCategory: {http.StatusBadRequest, "Budgets require an available debit category"},
	BudgetInvalidAmount:   {http.StatusBadRequest, "Amount must be between 0.01 and 99999999.99"},
	BudgetForbidden:       {http.StatusForbidden, "You do not have permission to create this budget"},

	SystemInternalError:      {http.StatusInternalServerError, "An unexpected error occurred. Please contact support with trace ID"},
	SystemDatabaseError:      {http.StatusInternalServerError, "Database connection error"},
	SystemServiceUnavailable: {http.StatusServiceUnavailable, "Service temporarily unavailable"},
	SystemConfigurationError: {http.StatusInternalServerError, "System configuration error"},
	SystemUnexpectedError:    {http.StatusInternalServerError, "An unexpected error occurred"},
	SystemRateLimitExceeded:  {http.StatusTooManyRequests, "Rate limit exceeded. Please try again later"},
}

// Message returns the default message for code, or a generic one for unknown codes
func Message(code ErrorCode) string {
	if info, ok := catalog[code]; ok {
		return info.message
	}
	return "An error occurred"
}

// Status returns the HTTP status for code. Unknown codes are 500.
func Status(code ErrorCode) int {
	if info, ok := catalog[code]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

func Known(code ErrorCode) bool {
	_, ok := catalog[code]
	return ok
}
