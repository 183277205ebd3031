package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"expense-tracker/internal/models"
)

type HandlerFunc func(ctx context.Context, task *Task) error

// Dispatcher routes tasks to the handler registered for their type
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	logger   *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}
}

func (d *Dispatcher) Register(taskType string, handler HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[taskType] = handler
}

func (d *Dispatcher) Handle(ctx context.Context, task *Task) error {
	d.mu.RLock()
	handler, ok := d.handlers[task.Type]
	d.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTaskType, task.Type)
	}

	if task.TraceID != "" {
		ctx = models.WithTraceID(ctx, task.TraceID)
	}

	start := time.Now()
	if err := handler(ctx, task); err != nil {
		d.logger.ErrorContext(ctx, "task failed",
			"task_id", task.ID,
			"task_type", task.Type,
			"trace_id", task.TraceID,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return err
	}

	d.logger.DebugContext(ctx, "task completed",
		"task_id", task.ID,
		"task_type", task.Type,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}
