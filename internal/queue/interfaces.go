package queue

import "context"

// PublisherInterface hands tasks to whatever executes them
type PublisherInterface interface {
	Publish(ctx context.Context, task *Task) error
}
