package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"expense-tracker/internal/mail"
	"expense-tracker/internal/models"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	published  []amqp091.Publishing
	keys       []string
	deliveries chan amqp091.Delivery
	publishErr error
	deadline   bool
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	_, f.deadline = ctx.Deadline()
	f.keys = append(f.keys, exchange+"/"+key)
	f.published = append(f.published, msg)
	return f.publishErr
}

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	return nil
}

func (f *fakeChannel) Close() error {
	return nil
}

type ackResult struct {
	acked   bool
	requeue bool
}

type fakeAcknowledger struct {
	results chan ackResult
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.results <- ackResult{acked: true}
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.results <- ackResult{requeue: requeue}
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	a.results <- ackResult{requeue: requeue}
	return nil
}

func newTestClient(ch *fakeChannel) *Client {
	return &Client{
		channel:      ch,
		exchangeName: "expense_tracker",
		queueName:    "expense_tracker.tasks",
		logger:       slog.Default(),
	}
}

func TestClient_PublishPersistentWithTimeout(t *testing.T) {
	ch := &fakeChannel{}
	client := newTestClient(ch)

	task, err := NewBudgetCheckTask(models.BudgetKey{UserID: uuid.New(), CategoryID: uuid.New(), Year: 2026, Month: 10})
	require.NoError(t, err)

	require.NoError(t, client.Publish(context.Background(), task))

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, "expense_tracker/expense_tracker.tasks", ch.keys[0])
	assert.Equal(t, amqp091.Persistent, msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, TaskTypeBudgetCheck, msg.Type)
	assert.Equal(t, task.ID.String(), msg.MessageId)
	assert.True(t, ch.deadline)

	decoded, err := TaskFromJSON(msg.Body)
	require.NoError(t, err)
	assert.Equal(t, task.ID, decoded.ID)
}

func TestClient_PublishError(t *testing.T) {
	ch := &fakeChannel{publishErr: amqp091.ErrClosed}
	client := newTestClient(ch)

	err := client.Publish(context.Background(), &Task{ID: uuid.New(), Type: TaskTypeEmailSend})

	assert.ErrorIs(t, err, amqp091.ErrClosed)
}

func TestClient_ConsumeAcksAndNacks(t *testing.T) {
	good, _ := (&Task{ID: uuid.New(), Type: TaskTypeBudgetCheck, Payload: []byte(`{}`)}).ToJSON()
	failing, _ := (&Task{ID: uuid.New(), Type: TaskTypeEmailSend, Payload: []byte(`{}`)}).ToJSON()
	unknown, _ := (&Task{ID: uuid.New(), Type: "report.generate", Payload: []byte(`{}`)}).ToJSON()

	tests := []struct {
		name string
		body []byte
		want ackResult
	}{
		{"handled task is acked", good, ackResult{acked: true}},
		{"handler failure is retried behind the queue", failing, ackResult{acked: true}},
		{"unknown type is dropped", unknown, ackResult{requeue: false}},
		{"malformed body is dropped", []byte("{"), ackResult{requeue: false}},
	}

	dispatcher := NewDispatcher(slog.Default())
	dispatcher.Register(TaskTypeBudgetCheck, func(ctx context.Context, task *Task) error { return nil })
	dispatcher.Register(TaskTypeEmailSend, func(ctx context.Context, task *Task) error { return errors.New("provider down") })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &fakeChannel{deliveries: make(chan amqp091.Delivery, 1)}
			client := newTestClient(ch)
			ack := &fakeAcknowledger{results: make(chan ackResult, 1)}

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- client.Consume(ctx, dispatcher.Handle) }()

			ch.deliveries <- amqp091.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: tt.body}

			select {
			case got := <-ack.results:
				assert.Equal(t, tt.want, got)
			case <-time.After(2 * time.Second):
				t.Fatal("delivery was not acknowledged")
			}

			cancel()
			assert.ErrorIs(t, <-done, context.Canceled)
		})
	}
}

// consumeOne runs Consume until the single delivery has been acknowledged
func consumeOne(t *testing.T, client *Client, ch *fakeChannel, delivery amqp091.Delivery, handler HandlerFunc) ackResult {
	t.Helper()
	ack := &fakeAcknowledger{results: make(chan ackResult, 1)}
	delivery.Acknowledger = ack
	delivery.DeliveryTag = 1

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Consume(ctx, handler) }()

	ch.deliveries <- delivery

	var got ackResult
	select {
	case got = <-ack.results:
	case <-time.After(2 * time.Second):
		t.Fatal("delivery was not acknowledged")
	}

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	return got
}

func TestClient_FailedTaskRetries(t *testing.T) {
	body, err := (&Task{ID: uuid.New(), Type: TaskTypeEmailSend, Payload: []byte(`{}`)}).ToJSON()
	require.NoError(t, err)
	providerDown := func(ctx context.Context, task *Task) error {
		return fmt.Errorf("failed to send: %w", mail.ErrProviderUnavailable)
	}

	tests := []struct {
		name          string
		headers       amqp091.Table
		publishErr    error
		want          ackResult
		wantAttempt   int32
		wantPublished int
	}{
		{"first failure is republished", nil, nil, ackResult{acked: true}, 2, 1},
		{"attempt header is incremented", amqp091.Table{AttemptHeader: int32(3)}, nil, ackResult{acked: true}, 4, 1},
		{"last attempt is dropped", amqp091.Table{AttemptHeader: int32(5)}, nil, ackResult{requeue: false}, 0, 0},
		{"republish failure falls back to requeue", nil, amqp091.ErrClosed, ackResult{requeue: true}, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &fakeChannel{deliveries: make(chan amqp091.Delivery, 1), publishErr: tt.publishErr}
			client := newTestClient(ch)
			client.maxAttempts = 5

			got := consumeOne(t, client, ch, amqp091.Delivery{Headers: tt.headers, Body: body}, providerDown)

			assert.Equal(t, tt.want, got)
			require.Len(t, ch.published, tt.wantPublished)
			if tt.wantPublished > 0 {
				assert.Equal(t, tt.wantAttempt, ch.published[0].Headers[AttemptHeader])
				decoded, err := TaskFromJSON(ch.published[0].Body)
				require.NoError(t, err)
				assert.Equal(t, TaskTypeEmailSend, decoded.Type)
			}
		})
	}
}

func TestClient_PermanentFailureIsDropped(t *testing.T) {
	body, err := (&Task{ID: uuid.New(), Type: TaskTypeBudgetCheck, Payload: []byte(`{}`)}).ToJSON()
	require.NoError(t, err)

	failures := map[string]error{
		"marked permanent": Permanent(errors.New("category not found")),
		"mail rejected":    fmt.Errorf("failed to send: %w: status 400", mail.ErrDeliveryRejected),
	}

	for name, failure := range failures {
		t.Run(name, func(t *testing.T) {
			ch := &fakeChannel{deliveries: make(chan amqp091.Delivery, 1)}
			client := newTestClient(ch)

			got := consumeOne(t, client, ch, amqp091.Delivery{Body: body}, func(ctx context.Context, task *Task) error {
				return failure
			})

			assert.Equal(t, ackResult{requeue: false}, got)
			assert.Empty(t, ch.published)
		})
	}
}

func TestClient_PublishStartsAtFirstAttempt(t *testing.T) {
	ch := &fakeChannel{}
	client := newTestClient(ch)

	require.NoError(t, client.Publish(context.Background(), &Task{ID: uuid.New(), Type: TaskTypeEmailSend}))

	require.Len(t, ch.published, 1)
	assert.Equal(t, int32(1), ch.published[0].Headers[AttemptHeader])
}

func TestClient_ConsumeStopsWhenDeliveriesClose(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp091.Delivery)}
	close(ch.deliveries)
	client := newTestClient(ch)

	err := client.Consume(context.Background(), func(ctx context.Context, task *Task) error { return nil })

	assert.ErrorIs(t, err, ErrDeliveriesClosed)
}
