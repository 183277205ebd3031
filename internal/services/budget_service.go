package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"expense-tracker/internal/dto"
	"expense-tracker/internal/models"
	"expense-tracker/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrBudgetNotFound        = errors.New("budget not found")
	ErrBudgetExists          = errors.New("a budget already exists for this category and month")
	ErrBudgetPastMonth       = errors.New("budgets cannot be created for a past month")
	ErrBudgetCategoryInvalid = errors.New("budget category must be an available debit category")
)

// BudgetService manages monthly per-category budgets
type BudgetService struct {
	budgetRepo      repositories.BudgetRepositoryInterface
	categoryRepo    repositories.CategoryRepositoryInterface
	transactionRepo repositories.TransactionRepositoryInterface
	userRepo        repositories.UserRepositoryInterface
	taskPublisher   TaskPublisherInterface
	logger          *slog.Logger
	now             func() time.Time
}

func NewBudgetService(
	budgetRepo repositories.BudgetRepositoryInterface,
	categoryRepo repositories.CategoryRepositoryInterface,
	transactionRepo repositories.TransactionRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	taskPublisher TaskPublisherInterface,
	logger *slog.Logger,
) BudgetServiceInterface {
	return &BudgetService{
		budgetRepo:      budgetRepo,
		categoryRepo:    categoryRepo,
		transactionRepo: transactionRepo,
		userRepo:        userRepo,
		taskPublisher:   taskPublisher,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *BudgetService) ListBudgets(actor models.Actor, filters models.BudgetFilters) ([]dto.BudgetWithSpent, int64, error) {
	filters.Scope = actor.Scope()
	filters.Page = normalizePage(filters.Page)

	budgets, total, err := s.budgetRepo.List(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list budgets: %w", err)
	}

	items := make([]dto.BudgetWithSpent, 0, len(budgets))
	for i := range budgets {
		item, err := s.withSpent(&budgets[i])
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *item)
	}

	return items, total, nil
}

func (s *BudgetService) CreateBudget(ctx context.Context, actor models.Actor, req *dto.CreateBudgetRequest) (*dto.BudgetWithSpent, error) {
	ownerID, err := resolveTargetUser(s.userRepo, actor, req.UserID)
	if err != nil {
		return nil, err
	}

	month, year, err := models.ParseMonthYear(req.MonthYear)
	if err != nil {
		return nil, err
	}

	if models.IsPastMonth(year, month, s.now()) {
		return nil, ErrBudgetPastMonth
	}

	if err := models.ValidateBudgetAmount(req.Amount); err != nil {
		return nil, err
	}

	category, err := s.categoryRepo.GetByID(req.CategoryID)
	if err != nil {
		if errors.Is(err, repositories.ErrCategoryNotFound) {
			return nil, ErrBudgetCategoryInvalid
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	if !category.IsAvailableTo(ownerID) || category.Type != models.TypeDebit {
		return nil, ErrBudgetCategoryInvalid
	}

	key := models.BudgetKey{UserID: ownerID, CategoryID: category.ID, Year: year, Month: month}

	exists, err := s.budgetRepo.Exists(key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing budget: %w", err)
	}
	if exists {
		return nil, ErrBudgetExists
	}

	budget := &models.Budget{
		UserID:          key.UserID,
		CategoryID:      key.CategoryID,
		Year:            key.Year,
		Month:           key.Month,
		Amount:          req.Amount,
		WasBelowWarning: true,
		LastAlertLevel:  models.AlertLevelNone,
	}

	if err := s.budgetRepo.Create(budget); err != nil {
		if errors.Is(err, repositories.ErrBudgetAlreadyExists) {
			return nil, ErrBudgetExists
		}
		return nil, fmt.Errorf("failed to create budget: %w", err)
	}

	s.logger.InfoContext(ctx, "budget created",
		"budget_id", budget.ID,
		"user_id", budget.UserID,
		"period", budget.MonthYear())

	// Spending recorded before the budget existed may already cross a threshold
	s.taskPublisher.PublishBudgetChecks(ctx, key)

	return s.withSpent(budget)
}

// GetBudget hides budgets the actor does not own behind a not-found error
func (s *BudgetService) GetBudget(actor models.Actor, budgetID uuid.UUID) (*dto.BudgetWithSpent, error) {
	budget, err := s.load(actor, budgetID)
	if err != nil {
		return nil, err
	}

	return s.withSpent(budget)
}

func (s *BudgetService) UpdateBudget(ctx context.Context, actor models.Actor, budgetID uuid.UUID, amount decimal.Decimal) (*dto.BudgetWithSpent, error) {
	budget, err := s.load(actor, budgetID)
	if err != nil {
		return nil, err
	}

	if err := models.ValidateBudgetAmount(amount); err != nil {
		return nil, err
	}

	if err := s.budgetRepo.UpdateAmount(budget.ID, amount); err != nil {
		if errors.Is(err, repositories.ErrBudgetNotFound) {
			return nil, ErrBudgetNotFound
		}
		return nil, fmt.Errorf("failed to update budget: %w", err)
	}

	budget.Amount = amount
	s.taskPublisher.PublishBudgetChecks(ctx, budget.Key())

	return s.withSpent(budget)
}

func (s *BudgetService) DeleteBudget(actor models.Actor, budgetID uuid.UUID) error {
	budget, err := s.load(actor, budgetID)
	if err != nil {
		return err
	}

	if err := s.budgetRepo.SoftDelete(budget.ID); err != nil {
		if errors.Is(err, repositories.ErrBudgetNotFound) {
			return ErrBudgetNotFound
		}
		return fmt.Errorf("failed to delete budget: %w", err)
	}

	return nil
}

func (s *BudgetService) load(actor models.Actor, budgetID uuid.UUID) (*models.Budget, error) {
	budget, err := s.budgetRepo.GetByID(budgetID)
	if err != nil {
		if errors.Is(err, repositories.ErrBudgetNotFound) {
			return nil, ErrBudgetNotFound
		}
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}

	if !actor.CanAccess(budget.UserID) {
		return nil, ErrBudgetNotFound
	}

	return budget, nil
}

func (s *BudgetService) withSpent(budget *models.Budget) (*dto.BudgetWithSpent, error) {
	spent, err := s.transactionRepo.SumSpent(budget.Key())
	if err != nil {
		return nil, fmt.Errorf("failed to compute spent amount: %w", err)
	}

	return &dto.BudgetWithSpent{Budget: *budget, Spent: spent}, nil
}
