package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"expense-tracker/internal/mail"
	"expense-tracker/internal/models"

	"github.com/google/uuid"
)

const (
	TaskTypeBudgetCheck = "budget.check"
	TaskTypeEmailSend   = "email.send"
)

var (
	ErrUnknownTaskType = errors.New("unknown task type")
	ErrInvalidPayload  = errors.New("invalid task payload")
	// ErrPermanent marks a handler failure that a retry cannot fix
	ErrPermanent = errors.New("permanent task failure")
)

// Task is the envelope published to the broker. The payload is decoded by
// the handler registered for the task type.
type Task struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	TraceID   string          `json:"trace_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func NewTask(taskType string, payload interface{}) (*Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", taskType, err)
	}

	return &Task{
		ID:        uuid.New(),
		Type:      taskType,
		Payload:   body,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func NewBudgetCheckTask(key models.BudgetKey) (*Task, error) {
	return NewTask(TaskTypeBudgetCheck, key)
}

func NewEmailTask(msg *mail.Message) (*Task, error) {
	return NewTask(TaskTypeEmailSend, msg)
}

// Decode unmarshals the payload into out
func (t *Task) Decode(out interface{}) error {
	if len(t.Payload) == 0 {
		return fmt.Errorf("%w: empty payload for %s", ErrInvalidPayload, t.Type)
	}

	if err := json.Unmarshal(t.Payload, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	return nil
}

func (t *Task) ToJSON() ([]byte, error) {
	return json.Marshal(t)
}

func TaskFromJSON(data []byte) (*Task, error) {
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, err
	}

	if task.Type == "" {
		return nil, fmt.Errorf("%w: missing task type", ErrInvalidPayload)
	}

	return &task, nil
}

// Permanent marks err so the consumer drops the task instead of retrying it
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// IsPermanent reports whether retrying the task can never succeed
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent) ||
		errors.Is(err, ErrUnknownTaskType) ||
		errors.Is(err, ErrInvalidPayload) ||
		errors.Is(err, mail.ErrDeliveryRejected)
}
