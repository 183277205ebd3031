package services

import (
	"context"
	"time"

	"expense-tracker/internal/dto"
	"expense-tracker/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AuthServiceInterface interface {
	Register(req *dto.RegisterRequest, ipAddress, userAgent string) (*dto.AuthResponse, error)
	Login(req *dto.LoginRequest, ipAddress, userAgent string) (*dto.AuthResponse, error)
	RefreshTokens(refreshToken, ipAddress, userAgent string) (*dto.TokenResponse, error)
	Logout(userID uuid.UUID, ipAddress, userAgent string) error
	RequestPasswordReset(ctx context.Context, email, ipAddress, userAgent string) error
	ConfirmPasswordReset(ctx context.Context, uid, token, password, ipAddress, userAgent string) error
	CreateStaff(req *dto.RegisterRequest) (*models.User, error)
}

type TokenServiceInterface interface {
	GenerateAccessToken(user *models.User) (string, time.Time, error)
	GenerateRefreshToken(userID uuid.UUID) (string, time.Time, error)
	GeneratePasswordResetToken(user *models.User) (string, error)
	ValidateAccessToken(tokenString string) (*models.CustomClaims, error)
	ValidateRefreshToken(tokenString string) (*models.CustomClaims, error)
	ValidatePasswordResetToken(tokenString string, user *models.User) error
	ExtractTokenFromHeader(authHeader string) (string, error)
	GetJTI(tokenString string) (string, error)
	GetTokenExpiry(tokenString string) (time.Time, error)
}

type PasswordServiceInterface interface {
	ValidatePassword(password string) error
	HashPassword(password string) (string, error)
	ComparePassword(password, hash string) bool
	HashPasswordWithoutValidation(password string) (string, error)
	GenerateSecurePassword() (string, error)
}

// UserServiceInterface manages user profiles on behalf of an authenticated actor
type UserServiceInterface interface {
	ListUsers(actor models.Actor, page dto.PageQuery) ([]*models.User, int64, error)
	GetUser(actor models.Actor, userID uuid.UUID) (*models.User, error)
	UpdateUser(actor models.Actor, userID uuid.UUID, req *dto.UpdateUserRequest) (*models.User, error)
	DeleteUser(actor models.Actor, userID uuid.UUID, req *dto.DeleteUserRequest) error
	ChangePassword(actor models.Actor, userID uuid.UUID, req *dto.ChangePasswordRequest) error
}

type CategoryServiceInterface interface {
	ListCategories(actor models.Actor, query dto.CategoryListQuery) ([]models.Category, int64, error)
	CreateCategory(actor models.Actor, req *dto.CreateCategoryRequest) (*models.Category, error)
	GetCategory(actor models.Actor, categoryID uuid.UUID) (*models.Category, error)
	UpdateCategory(actor models.Actor, categoryID uuid.UUID, req *dto.UpdateCategoryRequest) (*models.Category, error)
	DeleteCategory(actor models.Actor, categoryID uuid.UUID) error
}

type TransactionServiceInterface interface {
	ListTransactions(actor models.Actor, filters models.TransactionFilters) ([]models.Transaction, int64, error)
	CreateTransaction(ctx context.Context, actor models.Actor, req *dto.CreateTransactionRequest) (*models.Transaction, error)
	GetTransaction(actor models.Actor, transactionID uuid.UUID) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, actor models.Actor, transactionID uuid.UUID, req *dto.UpdateTransactionRequest) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, actor models.Actor, transactionID uuid.UUID) error
}

type BudgetServiceInterface interface {
	ListBudgets(actor models.Actor, filters models.BudgetFilters) ([]dto.BudgetWithSpent, int64, error)
	CreateBudget(ctx context.Context, actor models.Actor, req *dto.CreateBudgetRequest) (*dto.BudgetWithSpent, error)
	GetBudget(actor models.Actor, budgetID uuid.UUID) (*dto.BudgetWithSpent, error)
	UpdateBudget(ctx context.Context, actor models.Actor, budgetID uuid.UUID, amount decimal.Decimal) (*dto.BudgetWithSpent, error)
	DeleteBudget(actor models.Actor, budgetID uuid.UUID) error
}

// BudgetAlertServiceInterface evaluates budget thresholds and sends the resulting notifications
type BudgetAlertServiceInterface interface {
	CheckBudget(ctx context.Context, key models.BudgetKey) (models.AlertLevel, error)
	SweepPeriod(ctx context.Context, now time.Time) (int, error)
}

// TaskPublisherInterface enqueues background work produced by the domain services
type TaskPublisherInterface interface {
	PublishBudgetChecks(ctx context.Context, keys ...models.BudgetKey)
	PublishEmail(ctx context.Context, to, toName, subject, plainText, templateID string, templateData map[string]interface{}) error
}

// AuditServiceInterface records user management events in the audit log
type AuditServiceInterface interface {
	CreateAuditLog(log *models.AuditLog) error
	GetUserActivity(userID uuid.UUID, action string, page models.Page) ([]*models.AuditLog, int64, error)
	LogProfileUpdate(actor models.Actor, userID uuid.UUID, changes map[string]interface{}) error
	LogPasswordChanged(actor models.Actor, userID uuid.UUID) error
	LogUserDeactivated(actor models.Actor, userID uuid.UUID, categoriesOrphaned int64) error
}

type MetricsRecorderInterface interface {
	IncrementCounter(name string, tags map[string]string)
	RecordProcessingTime(name string, duration time.Duration)
	RecordGauge(name string, value float64, tags map[string]string)
}

// AuditLoggerInterface emits structured events for background processing
type AuditLoggerInterface interface {
	LogTaskPublished(ctx context.Context, taskID uuid.UUID, taskType string)
	LogTaskPublishFailed(ctx context.Context, taskType string, errorMsg string)
	LogBudgetEvaluated(ctx context.Context, budgetID uuid.UUID, spent, amount string, level models.AlertLevel)
	LogBudgetAlertSent(ctx context.Context, budgetID, userID uuid.UUID, level models.AlertLevel, durationMs int64)
	LogBudgetAlertFailed(ctx context.Context, budgetID uuid.UUID, level models.AlertLevel, errorMsg string)
	LogBudgetStateConflict(ctx context.Context, budgetID uuid.UUID)
	LogSweepCompleted(ctx context.Context, year, month, evaluated, failed int, durationMs int64)
	LogCircuitBreakerStateChange(ctx context.Context, service string, oldState, newState string)
}

type CircuitBreakerInterface interface {
	IsOpen() bool
	RecordSuccess()
	RecordFailure()
	GetState() models.CircuitBreakerState
	Reset()
	GetFailureCount() int
}
