package services

import (
	"context"
	"fmt"
	"time"

	"expense-tracker/internal/mail"
	"expense-tracker/internal/models"
	"expense-tracker/internal/queue"
)

// RegisterTaskHandlers wires the background task types to the services that execute them.
// Email tasks share breaker with budget alerts so a provider outage pauses both.
func RegisterTaskHandlers(dispatcher *queue.Dispatcher, alerts BudgetAlertServiceInterface, mailer mail.MailerInterface, breaker CircuitBreakerInterface, metrics MetricsRecorderInterface) {
	dispatcher.Register(queue.TaskTypeBudgetCheck, instrument(queue.TaskTypeBudgetCheck, metrics, func(ctx context.Context, task *queue.Task) error {
		var key models.BudgetKey
		if err := task.Decode(&key); err != nil {
			return err
		}

		_, err := alerts.CheckBudget(ctx, key)
		return err
	}))

	dispatcher.Register(queue.TaskTypeEmailSend, instrument(queue.TaskTypeEmailSend, metrics, func(ctx context.Context, task *queue.Task) error {
		var msg mail.Message
		if err := task.Decode(&msg); err != nil {
			return err
		}

		if err := msg.Validate(); err != nil {
			return fmt.Errorf("%w: %v", queue.ErrInvalidPayload, err)
		}

		if err := sendGuarded(ctx, breaker, mailer, &msg); err != nil {
			return fmt.Errorf("failed to send email task: %w", err)
		}
		return nil
	}))
}

func instrument(taskType string, metrics MetricsRecorderInterface, handler queue.HandlerFunc) queue.HandlerFunc {
	return func(ctx context.Context, task *queue.Task) error {
		start := time.Now()
		err := handler(ctx, task)
		metrics.RecordProcessingTime(MetricTaskProcessing, time.Since(start))

		status := "success"
		if err != nil {
			status = "failed"
		}
		metrics.IncrementCounter(MetricTaskProcessed, map[string]string{"type": taskType, "status": status})

		return err
	}
}
