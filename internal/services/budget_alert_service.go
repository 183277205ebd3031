package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"expense-tracker/internal/mail"
	"expense-tracker/internal/models"
	"expense-tracker/internal/queue"
	"expense-tracker/internal/repositories"

	"github.com/shopspring/decimal"
)

// BudgetAlertService evaluates budget thresholds and emails the owner when one is crossed
type BudgetAlertService struct {
	budgetRepo      repositories.BudgetRepositoryInterface
	transactionRepo repositories.TransactionRepositoryInterface
	categoryRepo    repositories.CategoryRepositoryInterface
	userRepo        repositories.UserRepositoryInterface
	auditService    AuditServiceInterface
	mailer          mail.MailerInterface
	circuitBreaker  CircuitBreakerInterface
	metrics         MetricsRecorderInterface
	auditLogger     AuditLoggerInterface
	cooldown        time.Duration
	logger          *slog.Logger
	now             func() time.Time
}

func NewBudgetAlertService(
	budgetRepo repositories.BudgetRepositoryInterface,
	transactionRepo repositories.TransactionRepositoryInterface,
	categoryRepo repositories.CategoryRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	auditService AuditServiceInterface,
	mailer mail.MailerInterface,
	circuitBreaker CircuitBreakerInterface,
	metrics MetricsRecorderInterface,
	auditLogger AuditLoggerInterface,
	cooldown time.Duration,
	logger *slog.Logger,
) BudgetAlertServiceInterface {
	if cooldown <= 0 {
		cooldown = models.DefaultNotificationCooldown
	}

	return &BudgetAlertService{
		budgetRepo:      budgetRepo,
		transactionRepo: transactionRepo,
		categoryRepo:    categoryRepo,
		userRepo:        userRepo,
		auditService:    auditService,
		mailer:          mailer,
		circuitBreaker:  circuitBreaker,
		metrics:         metrics,
		auditLogger:     auditLogger,
		cooldown:        cooldown,
		logger:          logger,
		now:             time.Now,
	}
}

// NewMailerCircuitBreaker returns the breaker shared by every outbound email and
// reports its transitions to the audit log and the state gauge
func NewMailerCircuitBreaker(auditLogger AuditLoggerInterface, metrics MetricsRecorderInterface) CircuitBreakerInterface {
	config := DefaultCircuitBreakerConfig()
	config.OnStateChange = func(name string, from, to models.CircuitBreakerState) {
		auditLogger.LogCircuitBreakerStateChange(context.Background(), name, from.String(), to.String())
		metrics.RecordGauge(MetricCircuitBreakerState, float64(to), map[string]string{"service": name})
	}
	return NewCircuitBreaker(config)
}

// CheckBudget evaluates the budget of one period and sends the alert it calls for.
// The new alert state is stored before sending, conditioned on the state read,
// so concurrent checks of the same budget send at most one email.
func (s *BudgetAlertService) CheckBudget(ctx context.Context, key models.BudgetKey) (models.AlertLevel, error) {
	budget, err := s.budgetRepo.GetByKey(key)
	if err != nil {
		if errors.Is(err, repositories.ErrBudgetNotFound) {
			s.metrics.IncrementCounter(MetricBudgetCheck, map[string]string{"result": "no_budget"})
			return models.AlertLevelNone, nil
		}
		return models.AlertLevelNone, fmt.Errorf("failed to get budget: %w", err)
	}

	spent, err := s.transactionRepo.SumSpent(key)
	if err != nil {
		return models.AlertLevelNone, fmt.Errorf("failed to compute spent amount: %w", err)
	}

	previous := budget.AlertState()
	previousSentAt := budget.LastWarningSentAt

	level := budget.EvaluateAlert(spent, s.now(), s.cooldown)
	s.auditLogger.LogBudgetEvaluated(ctx, budget.ID, spent.StringFixed(2), budget.Amount.StringFixed(2), level)

	if level == models.AlertLevelNone && budget.AlertState() == previous {
		s.metrics.IncrementCounter(MetricBudgetCheck, map[string]string{"result": "unchanged"})
		return models.AlertLevelNone, nil
	}

	saved, err := s.budgetRepo.SaveAlertState(budget, previous)
	if err != nil {
		return models.AlertLevelNone, err
	}
	if !saved {
		s.auditLogger.LogBudgetStateConflict(ctx, budget.ID)
		s.metrics.IncrementCounter(MetricBudgetCheck, map[string]string{"result": "conflict"})
		return models.AlertLevelNone, nil
	}

	if level == models.AlertLevelNone {
		s.metrics.IncrementCounter(MetricBudgetCheck, map[string]string{"result": "rearmed"})
		return models.AlertLevelNone, nil
	}

	s.metrics.IncrementCounter(MetricBudgetCheck, map[string]string{"result": string(level)})

	start := time.Now()
	if err := s.deliver(ctx, budget, spent, level); err != nil {
		s.metrics.IncrementCounter(MetricBudgetNotification, map[string]string{"level": string(level), "status": "failed"})
		s.auditLogger.LogBudgetAlertFailed(ctx, budget.ID, level, err.Error())
		s.restoreAlertState(ctx, budget, previous, previousSentAt)
		return level, err
	}

	s.metrics.IncrementCounter(MetricBudgetNotification, map[string]string{"level": string(level), "status": "sent"})
	s.auditLogger.LogBudgetAlertSent(ctx, budget.ID, budget.UserID, level, time.Since(start).Milliseconds())
	s.auditAlert(budget, spent, level)

	return level, nil
}

func (s *BudgetAlertService) deliver(ctx context.Context, budget *models.Budget, spent decimal.Decimal, level models.AlertLevel) error {
	if s.circuitBreaker.IsOpen() {
		return ErrCircuitBreakerOpen
	}

	// A deactivated owner or a deleted category stays that way, so the
	// alert is undeliverable rather than delayed.
	user, err := s.userRepo.GetByIDActive(budget.UserID)
	if err != nil {
		err = fmt.Errorf("failed to get budget owner: %w", err)
		if errors.Is(err, repositories.ErrUserNotFound) {
			return queue.Permanent(err)
		}
		return err
	}

	category, err := s.categoryRepo.GetByID(budget.CategoryID)
	if err != nil {
		err = fmt.Errorf("failed to get budget category: %w", err)
		if errors.Is(err, repositories.ErrCategoryNotFound) {
			return queue.Permanent(err)
		}
		return err
	}

	msg := &mail.Message{
		To:        user.Email,
		ToName:    user.Name,
		Subject:   AlertSubject(category.Name, budget.PercentageUsed(spent), level),
		PlainText: AlertBody(category.Name, spent, budget.Amount, level),
	}

	if err := sendGuarded(ctx, s.circuitBreaker, s.mailer, msg); err != nil {
		return fmt.Errorf("failed to send budget alert: %w", err)
	}
	return nil
}

// restoreAlertState undoes the claimed notification so the next check can retry it
func (s *BudgetAlertService) restoreAlertState(ctx context.Context, budget *models.Budget, previous models.AlertState, previousSentAt *time.Time) {
	claimed := budget.AlertState()

	budget.WasBelowWarning = previous.WasBelowWarning
	budget.LastAlertLevel = previous.LastAlertLevel
	budget.LastWarningSentAt = previousSentAt

	if _, err := s.budgetRepo.SaveAlertState(budget, claimed); err != nil {
		s.logger.ErrorContext(ctx, "failed to restore budget alert state",
			"error", err,
			"budget_id", budget.ID)
	}
}

func (s *BudgetAlertService) auditAlert(budget *models.Budget, spent decimal.Decimal, level models.AlertLevel) {
	userID := budget.UserID
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionBudgetAlertSent,
		Resource:   models.AuditResourceBudget,
		ResourceID: budget.ID.String(),
		Metadata: models.AuditMetadata{
			"level":  string(level),
			"spent":  spent.StringFixed(2),
			"amount": budget.Amount.StringFixed(2),
			"period": budget.MonthYear(),
		},
	}

	if err := s.auditService.CreateAuditLog(log); err != nil {
		s.logger.Error("failed to audit budget alert", "error", err, "budget_id", budget.ID)
	}
}

// SweepPeriod re-evaluates every live budget of the month containing now.
// Individual failures are counted and logged; the sweep carries on.
func (s *BudgetAlertService) SweepPeriod(ctx context.Context, now time.Time) (int, error) {
	start := time.Now()
	now = now.UTC()
	year, month := now.Year(), int(now.Month())

	budgets, err := s.budgetRepo.ListForPeriod(year, month)
	if err != nil {
		return 0, fmt.Errorf("failed to list budgets for sweep: %w", err)
	}

	var evaluated, failed int
	for i := range budgets {
		if err := ctx.Err(); err != nil {
			return evaluated, err
		}

		if _, err := s.CheckBudget(ctx, budgets[i].Key()); err != nil {
			failed++
			s.logger.WarnContext(ctx, "budget sweep check failed",
				"error", err,
				"budget_id", budgets[i].ID)
		}
		evaluated++
	}

	duration := time.Since(start)
	s.metrics.RecordProcessingTime(MetricBudgetSweep, duration)
	s.metrics.RecordGauge(MetricActiveBudgets, float64(evaluated), nil)
	s.auditLogger.LogSweepCompleted(ctx, year, month, evaluated, failed, duration.Milliseconds())

	return evaluated, nil
}

// AlertSubject renders the notification subject, e.g. "Budget Alert: food - 92.5% used"
func AlertSubject(categoryName string, pct decimal.Decimal, level models.AlertLevel) string {
	prefix := "Budget Alert"
	if level == models.AlertLevelCritical {
		prefix = "CRITICAL Budget Alert"
	}
	return fmt.Sprintf("%s: %s - %s%% used", prefix, categoryName, pct.StringFixed(1))
}

func AlertBody(categoryName string, spent, amount decimal.Decimal, level models.AlertLevel) string {
	return fmt.Sprintf("You have used %s out of %s for category %s. Budget status: %s.",
		spent.StringFixed(2), amount.StringFixed(2), categoryName, level.Title())
}
