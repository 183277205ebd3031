package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"expense-tracker/internal/dto"
	"expense-tracker/internal/models"
	"expense-tracker/internal/repositories"

	"github.com/google/uuid"
)

var (
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrCategoryTypeMismatch = errors.New("category type does not match the transaction type")
	ErrCategoryNotAvailable = errors.New("category does not exist or is not available to this user")
	ErrTargetUserRequired   = errors.New("staff must specify the user_id of another active user")
)

// TransactionService records user transactions and schedules the budget
// checks their changes affect
type TransactionService struct {
	transactionRepo repositories.TransactionRepositoryInterface
	categoryRepo    repositories.CategoryRepositoryInterface
	userRepo        repositories.UserRepositoryInterface
	taskPublisher   TaskPublisherInterface
	logger          *slog.Logger
}

func NewTransactionService(
	transactionRepo repositories.TransactionRepositoryInterface,
	categoryRepo repositories.CategoryRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	taskPublisher TaskPublisherInterface,
	logger *slog.Logger,
) TransactionServiceInterface {
	return &TransactionService{
		transactionRepo: transactionRepo,
		categoryRepo:    categoryRepo,
		userRepo:        userRepo,
		taskPublisher:   taskPublisher,
		logger:          logger,
	}
}

// ListTransactions restricts non-staff callers to their own transactions.
// The user_id filter only applies for staff.
func (s *TransactionService) ListTransactions(actor models.Actor, filters models.TransactionFilters) ([]models.Transaction, int64, error) {
	filters.Scope = actor.Scope()
	if !actor.IsStaff {
		filters.UserID = nil
	}
	filters.Page = normalizePage(filters.Page)

	transactions, total, err := s.transactionRepo.List(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}

	return transactions, total, nil
}

func (s *TransactionService) CreateTransaction(ctx context.Context, actor models.Actor, req *dto.CreateTransactionRequest) (*models.Transaction, error) {
	ownerID, err := resolveTargetUser(s.userRepo, actor, req.UserID)
	if err != nil {
		return nil, err
	}

	if err := models.ValidateAmount(req.Amount, models.MaxTransactionAmount); err != nil {
		return nil, err
	}

	if !models.IsValidType(req.Type) {
		return nil, models.ErrInvalidType
	}

	if err := s.checkCategory(req.CategoryID, ownerID, req.Type); err != nil {
		return nil, err
	}

	date := time.Now().UTC()
	if req.Date != nil {
		date = req.Date.UTC()
	}

	transaction := &models.Transaction{
		UserID:      ownerID,
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Date:        date,
		Description: strings.TrimSpace(req.Description),
		Type:        req.Type,
	}

	if err := s.transactionRepo.Create(transaction); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	s.taskPublisher.PublishBudgetChecks(ctx, transaction.BudgetKey())

	return transaction, nil
}

func (s *TransactionService) GetTransaction(actor models.Actor, transactionID uuid.UUID) (*models.Transaction, error) {
	transaction, err := s.transactionRepo.GetByID(transactionID)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	if !actor.CanAccess(transaction.UserID) {
		return nil, ErrForbidden
	}

	return transaction, nil
}

// UpdateTransaction applies a partial update and re-checks the category rules.
// Budget checks are scheduled for the period the transaction left and the one it joined.
func (s *TransactionService) UpdateTransaction(ctx context.Context, actor models.Actor, transactionID uuid.UUID, req *dto.UpdateTransactionRequest) (*models.Transaction, error) {
	transaction, err := s.GetTransaction(actor, transactionID)
	if err != nil {
		return nil, err
	}

	previousKey := transaction.BudgetKey()

	if req.UserID != nil && *req.UserID != transaction.UserID {
		if !actor.IsStaff {
			return nil, ErrForbidden
		}
		ownerID, err := resolveTargetUser(s.userRepo, actor, req.UserID)
		if err != nil {
			return nil, err
		}
		transaction.UserID = ownerID
	}

	if req.CategoryID != nil {
		transaction.CategoryID = *req.CategoryID
	}
	if req.Amount != nil {
		if err := models.ValidateAmount(*req.Amount, models.MaxTransactionAmount); err != nil {
			return nil, err
		}
		transaction.Amount = *req.Amount
	}
	if req.Date != nil {
		transaction.Date = req.Date.UTC()
	}
	if req.Description != nil {
		transaction.Description = strings.TrimSpace(*req.Description)
	}
	if req.Type != nil {
		if !models.IsValidType(*req.Type) {
			return nil, models.ErrInvalidType
		}
		transaction.Type = *req.Type
	}

	if err := s.checkCategory(transaction.CategoryID, transaction.UserID, transaction.Type); err != nil {
		return nil, err
	}

	if err := s.transactionRepo.Update(transaction); err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}

	s.taskPublisher.PublishBudgetChecks(ctx, previousKey, transaction.BudgetKey())

	return transaction, nil
}

func (s *TransactionService) DeleteTransaction(ctx context.Context, actor models.Actor, transactionID uuid.UUID) error {
	transaction, err := s.GetTransaction(actor, transactionID)
	if err != nil {
		return err
	}

	if err := s.transactionRepo.SoftDelete(transaction.ID); err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			return ErrTransactionNotFound
		}
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	s.taskPublisher.PublishBudgetChecks(ctx, transaction.BudgetKey())

	return nil
}

// checkCategory enforces that the category is live, available to the owner and of the same type
func (s *TransactionService) checkCategory(categoryID, ownerID uuid.UUID, transactionType string) error {
	category, err := s.categoryRepo.GetByID(categoryID)
	if err != nil {
		if errors.Is(err, repositories.ErrCategoryNotFound) {
			return ErrCategoryNotAvailable
		}
		return fmt.Errorf("failed to get category: %w", err)
	}

	if !category.IsAvailableTo(ownerID) {
		return ErrCategoryNotAvailable
	}

	if category.Type != transactionType {
		return ErrCategoryTypeMismatch
	}

	return nil
}

// resolveTargetUser returns the user a record is created for. Staff act on
// behalf of another active user; everyone else acts for themselves.
func resolveTargetUser(userRepo repositories.UserRepositoryInterface, actor models.Actor, requested *uuid.UUID) (uuid.UUID, error) {
	if !actor.IsStaff {
		if requested != nil && *requested != actor.UserID {
			return uuid.Nil, ErrForbidden
		}
		return actor.UserID, nil
	}

	if requested == nil {
		return uuid.Nil, ErrTargetUserRequired
	}

	if *requested == actor.UserID {
		return uuid.Nil, ErrForbidden
	}

	user, err := userRepo.GetByIDActive(*requested)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return uuid.Nil, ErrTargetUserRequired
		}
		return uuid.Nil, fmt.Errorf("failed to get target user: %w", err)
	}

	return user.ID, nil
}

func normalizePage(page models.Page) models.Page {
	normalized := dto.PageQuery{Page: page.Number, PageSize: page.Size}.Normalize()
	return models.Page{Number: normalized.Page, Size: normalized.PageSize}
}
