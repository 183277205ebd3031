package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"expense-tracker/internal/config"

	"github.com/rabbitmq/amqp091-go"
)

const (
	publishTimeout = 5 * time.Second

	// AttemptHeader counts how many times a task has been handed to a handler
	AttemptHeader = "x-attempt"

	DefaultMaxAttempts = 5
)

var ErrDeliveriesClosed = errors.New("delivery channel closed")

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	Close() error
}

// Client publishes and consumes tasks over a durable direct exchange. The
// queue is bound with its own name as the routing key.
type Client struct {
	conn         *amqp091.Connection
	channel      channel
	exchangeName string
	queueName    string
	maxAttempts  int
	logger       *slog.Logger
}

func NewClient(cfg *config.AMQPConfig, logger *slog.Logger) (*Client, error) {
	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      ch,
		exchangeName: cfg.Exchange,
		queueName:    cfg.Queue,
		maxAttempts:  cfg.MaxAttempts,
		logger:       logger,
	}

	if err := client.setup(ch); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set up exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup(ch *amqp091.Channel) error {
	err := ch.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	return nil
}

func (c *Client) Publish(ctx context.Context, task *Task) error {
	return c.publish(ctx, task, 1)
}

func (c *Client) publish(ctx context.Context, task *Task, attempt int) error {
	body, err := task.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    task.ID.String(),
			Type:         task.Type,
			Timestamp:    task.CreatedAt,
			Headers:      amqp091.Table{AttemptHeader: int32(attempt)},
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish task: %w", err)
	}

	c.logger.DebugContext(ctx, "published task",
		"task_id", task.ID,
		"task_type", task.Type,
		"attempt", attempt,
		"exchange", c.exchangeName,
		"queue", c.queueName,
	)

	return nil
}

// Consume delivers tasks to handler one at a time until ctx is done. Permanent
// failures are dropped. Other failures are republished to the back of the queue
// until the task has been attempted maxAttempts times, then dropped.
func (c *Client) Consume(ctx context.Context, handler HandlerFunc) error {
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	deliveries, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "consuming tasks", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "stopping task consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return ErrDeliveriesClosed
			}
			c.handleDelivery(ctx, delivery, handler)
		}
	}
}

func (c *Client) handleDelivery(ctx context.Context, delivery amqp091.Delivery, handler HandlerFunc) {
	task, err := TaskFromJSON(delivery.Body)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to decode task", "error", err)
		c.nack(ctx, delivery, false)
		return
	}

	err = handler(ctx, task)
	if err == nil {
		c.ack(ctx, delivery, task)
		return
	}

	attempt := deliveryAttempt(delivery)
	log := c.logger.With("task_id", task.ID, "task_type", task.Type, "attempt", attempt, "error", err)

	switch {
	case IsPermanent(err):
		log.ErrorContext(ctx, "dropping task after permanent failure")
		c.nack(ctx, delivery, false)
	case attempt >= c.attemptLimit():
		log.ErrorContext(ctx, "dropping task after too many attempts")
		c.nack(ctx, delivery, false)
	default:
		// Republishing moves the task behind the rest of the queue; a plain
		// requeue would put it straight back at the head.
		if pubErr := c.publish(ctx, task, attempt+1); pubErr != nil {
			log.ErrorContext(ctx, "failed to republish task", "publish_error", pubErr)
			c.nack(ctx, delivery, true)
			return
		}
		log.WarnContext(ctx, "task failed, retrying later")
		c.ack(ctx, delivery, task)
	}
}

func (c *Client) attemptLimit() int {
	if c.maxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return c.maxAttempts
}

// deliveryAttempt reads the attempt header; messages without one are first attempts
func deliveryAttempt(delivery amqp091.Delivery) int {
	switch v := delivery.Headers[AttemptHeader].(type) {
	case int32:
		return max(int(v), 1)
	case int64:
		return max(int(v), 1)
	case int:
		return max(v, 1)
	default:
		return 1
	}
}

func (c *Client) ack(ctx context.Context, delivery amqp091.Delivery, task *Task) {
	if err := delivery.Ack(false); err != nil {
		c.logger.ErrorContext(ctx, "failed to ack task", "task_id", task.ID, "error", err)
	}
}

func (c *Client) nack(ctx context.Context, delivery amqp091.Delivery, requeue bool) {
	if err := delivery.Nack(false, requeue); err != nil {
		c.logger.ErrorContext(ctx, "failed to nack task", "error", err)
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
