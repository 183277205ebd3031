package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"expense-tracker/internal/repositories"
	"expense-tracker/internal/services"
)

// RevokedTokenRetention is how long revoked refresh tokens are kept for auditing
const RevokedTokenRetention = 30 * 24 * time.Hour

// Options tunes a Sweeper. A zero AuditRetention keeps audit logs forever.
type Options struct {
	Interval       time.Duration
	AuditRetention time.Duration
}

// Sweeper periodically re-evaluates the current month's budgets, catching
// threshold crossings whose budget.check task was lost, and purges expired
// tokens and stale audit entries
type Sweeper struct {
	alerts         services.BudgetAlertServiceInterface
	activeTokens   repositories.ActiveTokenRepositoryInterface
	refreshTokens  repositories.RefreshTokenRepositoryInterface
	auditLogs      repositories.AuditLogRepositoryInterface
	interval       time.Duration
	auditRetention time.Duration
	now            func() time.Time
	logger         *slog.Logger
}

func NewSweeper(
	alerts services.BudgetAlertServiceInterface,
	activeTokens repositories.ActiveTokenRepositoryInterface,
	refreshTokens repositories.RefreshTokenRepositoryInterface,
	auditLogs repositories.AuditLogRepositoryInterface,
	opts Options,
	logger *slog.Logger,
) *Sweeper {
	if opts.Interval <= 0 {
		opts.Interval = 24 * time.Hour
	}

	return &Sweeper{
		alerts:         alerts,
		activeTokens:   activeTokens,
		refreshTokens:  refreshTokens,
		auditLogs:      auditLogs,
		interval:       opts.Interval,
		auditRetention: opts.AuditRetention,
		now:            time.Now,
		logger:         logger,
	}
}

// RunOnce sweeps budgets, tokens and audit logs a single time. Every step runs even if another fails.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	var errs []error

	evaluated, err := s.alerts.SweepPeriod(ctx, s.now())
	if err != nil {
		errs = append(errs, fmt.Errorf("budget sweep failed: %w", err))
	} else {
		s.logger.InfoContext(ctx, "budget sweep finished", "evaluated", evaluated)
	}

	if err := s.purgeTokens(ctx); err != nil {
		errs = append(errs, err)
	}

	if err := s.purgeAuditLogs(ctx); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (s *Sweeper) purgeAuditLogs(ctx context.Context) error {
	if s.auditRetention <= 0 || s.auditLogs == nil {
		return nil
	}

	deleted, err := s.auditLogs.DeleteOlderThan(s.now().Add(-s.auditRetention))
	if err != nil {
		return fmt.Errorf("failed to purge audit logs: %w", err)
	}

	s.logger.InfoContext(ctx, "audit purge finished", "deleted", deleted)
	return nil
}

func (s *Sweeper) purgeTokens(ctx context.Context) error {
	active, err := s.activeTokens.DeleteExpired()
	if err != nil {
		return fmt.Errorf("failed to purge expired access tokens: %w", err)
	}

	expired, err := s.refreshTokens.DeleteExpired()
	if err != nil {
		return fmt.Errorf("failed to purge expired refresh tokens: %w", err)
	}

	revoked, err := s.refreshTokens.DeleteRevokedOlderThan(s.now().Add(-RevokedTokenRetention))
	if err != nil {
		return fmt.Errorf("failed to purge revoked refresh tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "token purge finished",
		"access_tokens", active,
		"refresh_tokens_expired", expired,
		"refresh_tokens_revoked", revoked)

	return nil
}

// Run sweeps immediately and then on every interval until ctx is cancelled.
// Failed sweeps are logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.ErrorContext(ctx, "periodic sweep failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
