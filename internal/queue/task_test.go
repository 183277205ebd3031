package queue

import (
	"errors"
	"fmt"
	"testing"

	"expense-tracker/internal/mail"
	"expense-tracker/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBudgetCheckTask_RoundTrip(t *testing.T) {
	key := models.BudgetKey{UserID: uuid.New(), CategoryID: uuid.New(), Year: 2026, Month: 10}

	task, err := NewBudgetCheckTask(key)
	require.NoError(t, err)
	assert.Equal(t, TaskTypeBudgetCheck, task.Type)
	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.False(t, task.CreatedAt.IsZero())

	body, err := task.ToJSON()
	require.NoError(t, err)

	decoded, err := TaskFromJSON(body)
	require.NoError(t, err)
	assert.Equal(t, task.ID, decoded.ID)

	var got models.BudgetKey
	require.NoError(t, decoded.Decode(&got))
	assert.Equal(t, key, got)
}

func TestNewEmailTask_Decode(t *testing.T) {
	task, err := NewEmailTask(&mail.Message{To: "alice@example.com", Subject: "hi", PlainText: "hello"})
	require.NoError(t, err)
	assert.Equal(t, TaskTypeEmailSend, task.Type)

	var msg mail.Message
	require.NoError(t, task.Decode(&msg))
	assert.Equal(t, "alice@example.com", msg.To)
	assert.Equal(t, "hello", msg.PlainText)
}

func TestTaskFromJSON_Invalid(t *testing.T) {
	_, err := TaskFromJSON([]byte("not json"))
	assert.Error(t, err)

	_, err = TaskFromJSON([]byte(`{"id":"` + uuid.NewString() + `"}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestTask_DecodeInvalidPayload(t *testing.T) {
	task := &Task{Type: TaskTypeBudgetCheck, Payload: []byte(`"a string"`)}

	var key models.BudgetKey
	err := task.Decode(&key)
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.True(t, IsPermanent(err))

	empty := &Task{Type: TaskTypeBudgetCheck}
	assert.ErrorIs(t, empty.Decode(&key), ErrInvalidPayload)
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"marked", Permanent(errors.New("category not found")), true},
		{"marked and wrapped", fmt.Errorf("failed to check budget: %w", Permanent(errors.New("gone"))), true},
		{"unknown type", fmt.Errorf("%w: report", ErrUnknownTaskType), true},
		{"invalid payload", ErrInvalidPayload, true},
		{"mail rejected", fmt.Errorf("%w: status 400", mail.ErrDeliveryRejected), true},
		{"mail provider down", fmt.Errorf("%w: status 503", mail.ErrProviderUnavailable), false},
		{"plain error", errors.New("connection reset"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPermanent(tt.err))
		})
	}

	assert.NoError(t, Permanent(nil))
	assert.ErrorIs(t, Permanent(errors.New("gone")), ErrPermanent)
}
