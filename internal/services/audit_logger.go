package services

import (
	"context"
	"log/slog"

	"expense-tracker/internal/models"

	"github.com/google/uuid"
)

// AuditLogger writes structured slog events for work done outside a request
// handler: queued tasks, budget evaluation and the mail circuit breaker.
// Every event carries event_type and, when known, the originating trace_id.
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) AuditLoggerInterface {
	return &AuditLogger{logger: logger}
}

func (al *AuditLogger) event(ctx context.Context, level slog.Level, msg, eventType string, attrs ...slog.Attr) {
	attrs = append(attrs, slog.String("event_type", eventType))
	if traceID := models.TraceIDFromContext(ctx); traceID != "" {
		attrs = append(attrs, slog.String("trace_id", traceID))
	}
	al.logger.LogAttrs(ctx, level, msg, attrs...)
}

func (al *AuditLogger) LogTaskPublished(ctx context.Context, taskID uuid.UUID, taskType string) {
	al.event(ctx, slog.LevelDebug, "task published", "task_published",
		slog.String("task_id", taskID.String()),
		slog.String("task_type", taskType),
	)
}

func (al *AuditLogger) LogTaskPublishFailed(ctx context.Context, taskType string, errorMsg string) {
	al.event(ctx, slog.LevelWarn, "task publish failed", "task_publish_failed",
		slog.String("task_type", taskType),
		slog.String("error", errorMsg),
	)
}

func (al *AuditLogger) LogBudgetEvaluated(ctx context.Context, budgetID uuid.UUID, spent, amount string, level models.AlertLevel) {
	al.event(ctx, slog.LevelDebug, "budget evaluated", "budget_evaluated",
		slog.String("budget_id", budgetID.String()),
		slog.String("spent", spent),
		slog.String("amount", amount),
		slog.String("alert_level", string(level)),
	)
}

func (al *AuditLogger) LogBudgetAlertSent(ctx context.Context, budgetID, userID uuid.UUID, level models.AlertLevel, durationMs int64) {
	al.event(ctx, slog.LevelInfo, "budget alert sent", "budget_alert_sent",
		slog.String("budget_id", budgetID.String()),
		slog.String("user_id", userID.String()),
		slog.String("alert_level", string(level)),
		slog.Int64("duration_ms", durationMs),
	)
}

func (al *AuditLogger) LogBudgetAlertFailed(ctx context.Context, budgetID uuid.UUID, level models.AlertLevel, errorMsg string) {
	al.event(ctx, slog.LevelWarn, "budget alert failed", "budget_alert_failed",
		slog.String("budget_id", budgetID.String()),
		slog.String("alert_level", string(level)),
		slog.String("error", errorMsg),
	)
}

// LogBudgetStateConflict records a lost compare-and-swap on the alert state
func (al *AuditLogger) LogBudgetStateConflict(ctx context.Context, budgetID uuid.UUID) {
	al.event(ctx, slog.LevelInfo, "budget alert state changed concurrently", "budget_state_conflict",
		slog.String("budget_id", budgetID.String()),
	)
}

func (al *AuditLogger) LogSweepCompleted(ctx context.Context, year, month, evaluated, failed int, durationMs int64) {
	level := slog.LevelInfo
	if failed > 0 {
		level = slog.LevelWarn
	}

	al.event(ctx, level, "budget sweep completed", "budget_sweep_completed",
		slog.String("period", models.FormatMonthYear(month, year)),
		slog.Int("evaluated", evaluated),
		slog.Int("failed", failed),
		slog.Int64("duration_ms", durationMs),
	)
}

func (al *AuditLogger) LogCircuitBreakerStateChange(ctx context.Context, service string, oldState, newState string) {
	al.event(ctx, slog.LevelWarn, "circuit breaker state change", "circuit_breaker_state_change",
		slog.String("service", service),
		slog.String("old_state", oldState),
		slog.String("new_state", newState),
	)
}
