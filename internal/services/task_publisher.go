package services

import (
	"context"
	"fmt"

	"expense-tracker/internal/mail"
	"expense-tracker/internal/models"
	"expense-tracker/internal/queue"
)

// TaskPublisher turns domain events into queue tasks
type TaskPublisher struct {
	publisher   queue.PublisherInterface
	metrics     MetricsRecorderInterface
	auditLogger AuditLoggerInterface
}

func NewTaskPublisher(publisher queue.PublisherInterface, metrics MetricsRecorderInterface, auditLogger AuditLoggerInterface) TaskPublisherInterface {
	return &TaskPublisher{
		publisher:   publisher,
		metrics:     metrics,
		auditLogger: auditLogger,
	}
}

// PublishBudgetChecks enqueues one check per distinct key. Failures are logged
// only: the periodic sweep picks up any budget a lost task would have covered.
func (p *TaskPublisher) PublishBudgetChecks(ctx context.Context, keys ...models.BudgetKey) {
	seen := make(map[models.BudgetKey]bool, len(keys))

	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true

		task, err := queue.NewBudgetCheckTask(key)
		if err != nil {
			p.auditLogger.LogTaskPublishFailed(ctx, queue.TaskTypeBudgetCheck, err.Error())
			continue
		}

		_ = p.publish(ctx, task)
	}
}

func (p *TaskPublisher) PublishEmail(ctx context.Context, to, toName, subject, plainText, templateID string, templateData map[string]interface{}) error {
	msg := &mail.Message{
		To:           to,
		ToName:       toName,
		Subject:      subject,
		PlainText:    plainText,
		TemplateID:   templateID,
		TemplateData: templateData,
	}

	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}

	task, err := queue.NewEmailTask(msg)
	if err != nil {
		return err
	}

	return p.publish(ctx, task)
}

func (p *TaskPublisher) publish(ctx context.Context, task *queue.Task) error {
	if task.TraceID == "" {
		task.TraceID = models.TraceIDFromContext(ctx)
	}

	if err := p.publisher.Publish(ctx, task); err != nil {
		p.metrics.IncrementCounter(MetricTaskPublished, map[string]string{"type": task.Type, "status": "failed"})
		p.auditLogger.LogTaskPublishFailed(ctx, task.Type, err.Error())
		return fmt.Errorf("failed to publish %s task: %w", task.Type, err)
	}

	p.metrics.IncrementCounter(MetricTaskPublished, map[string]string{"type": task.Type, "status": "success"})
	p.auditLogger.LogTaskPublished(ctx, task.ID, task.Type)

	return nil
}
