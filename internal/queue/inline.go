package queue

import (
	"context"
	"log/slog"
)

// InlinePublisher runs tasks in-process when no broker is configured.
// Handler errors are logged and never reach the publisher's caller.
type InlinePublisher struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
}

func NewInlinePublisher(dispatcher *Dispatcher, logger *slog.Logger) PublisherInterface {
	return &InlinePublisher{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (p *InlinePublisher) Publish(ctx context.Context, task *Task) error {
	// The task outlives the request that produced it
	ctx = context.WithoutCancel(ctx)

	if err := p.dispatcher.Handle(ctx, task); err != nil {
		p.logger.WarnContext(ctx, "inline task failed",
			"task_id", task.ID,
			"task_type", task.Type,
			"error", err,
		)
	}

	return nil
}
