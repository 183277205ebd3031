package repositories

import (
	"time"

	"expense-tracker/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserRepositoryInterface defines the contract for user repository operations
type UserRepositoryInterface interface {
	Create(user *models.User) error
	GetByID(id uuid.UUID) (*models.User, error)
	GetByIDActive(id uuid.UUID) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	ExistsByEmail(email string, excludeUserID *uuid.UUID) (bool, error)
	ExistsByUsername(username string, excludeUserID *uuid.UUID) (bool, error)
	Update(user *models.User) error
	UpdateFields(userID uuid.UUID, fields map[string]interface{}) error
	UpdatePasswordHash(userID uuid.UUID, passwordHash string) error
	UpdateFailedLoginAttempts(user *models.User) error
	ResetFailedLoginAttempts(userID uuid.UUID) error
	UpdateLastLogin(userID uuid.UUID, at time.Time) error
	Deactivate(userID uuid.UUID) error
	ListUsers(page models.Page) ([]*models.User, int64, error)
}

// ActiveTokenRepositoryInterface tracks the access tokens that are currently valid
type ActiveTokenRepositoryInterface interface {
	Create(token *models.ActiveToken) error
	Exists(jti string) (bool, error)
	DeleteByJTI(jti string) error
	DeleteAllForUser(userID uuid.UUID) (int64, error)
	DeleteExpired() (int64, error)
}

type RefreshTokenRepositoryInterface interface {
	Create(token *models.RefreshToken) error
	GetByTokenHash(tokenHash string) (*models.RefreshToken, error)
	Revoke(tokenID uuid.UUID) error
	RevokeAllForUser(userID uuid.UUID) error
	DeleteExpired() (int64, error)
	DeleteRevokedOlderThan(cutoff time.Time) (int64, error)
}

// AuditLogRepositoryInterface defines the contract for audit log repository operations
type AuditLogRepositoryInterface interface {
	Create(log *models.AuditLog) error
	List(filters models.AuditLogFilters) ([]*models.AuditLog, int64, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// CategoryRepositoryInterface defines the contract for category repository operations.
// Every read ignores soft-deleted rows.
type CategoryRepositoryInterface interface {
	Create(category *models.Category) error
	GetByID(id uuid.UUID) (*models.Category, error)
	List(filters models.CategoryFilters) ([]models.Category, int64, error)
	UpdateName(id uuid.UUID, name string) error
	SoftDelete(id uuid.UUID) error
	ExistsForOwner(ownerID uuid.UUID, categoryType, name string, excludeID *uuid.UUID) (bool, error)
	ExistsPredefined(categoryType, name string, excludeID *uuid.UUID) (bool, error)
	OrphanByUser(userID uuid.UUID) (int64, error)
}

// TransactionRepositoryInterface defines the contract for transaction repository operations
type TransactionRepositoryInterface interface {
	Create(transaction *models.Transaction) error
	GetByID(id uuid.UUID) (*models.Transaction, error)
	List(filters models.TransactionFilters) ([]models.Transaction, int64, error)
	Update(transaction *models.Transaction) error
	SoftDelete(id uuid.UUID) error
	SumSpent(key models.BudgetKey) (decimal.Decimal, error)
}

// BudgetRepositoryInterface defines the contract for budget repository operations
type BudgetRepositoryInterface interface {
	Create(budget *models.Budget) error
	GetByID(id uuid.UUID) (*models.Budget, error)
	GetByKey(key models.BudgetKey) (*models.Budget, error)
	List(filters models.BudgetFilters) ([]models.Budget, int64, error)
	ListForPeriod(year, month int) ([]models.Budget, error)
	Exists(key models.BudgetKey, excludeID *uuid.UUID) (bool, error)
	UpdateAmount(id uuid.UUID, amount decimal.Decimal) error
	SaveAlertState(budget *models.Budget, previous models.AlertState) (bool, error)
	SoftDelete(id uuid.UUID) error
}
