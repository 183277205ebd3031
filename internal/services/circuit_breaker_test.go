package services

import (
	"sync"
	"testing"
	"time"

	"expense-tracker/internal/models"

	"github.com/stretchr/testify/assert"
)

type transition struct {
	from, to models.CircuitBreakerState
}

func newTestBreaker(maxFailures, halfOpenSuccesses int) (*CircuitBreaker, *time.Time, *[]transition) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	var transitions []transition

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:            "test",
		MaxFailures:     maxFailures,
		ResetTimeout:    time.Minute,
		HalfOpenMaxSucc: halfOpenSuccesses,
		OnStateChange: func(_ string, from, to models.CircuitBreakerState) {
			transitions = append(transitions, transition{from, to})
		},
	}).(*CircuitBreaker)
	cb.now = func() time.Time { return now }

	return cb, &now, &transitions
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb, _, transitions := newTestBreaker(3, 1)

	cb.RecordFailure()
	cb.RecordFailure()
	assert.False(t, cb.IsOpen())
	assert.Equal(t, 2, cb.GetFailureCount())

	cb.RecordFailure()
	assert.True(t, cb.IsOpen())
	assert.Equal(t, StateOpen, cb.GetState())
	assert.Equal(t, []transition{{StateClosed, StateOpen}}, *transitions)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb, _, _ := newTestBreaker(3, 1)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()

	assert.Equal(t, 0, cb.GetFailureCount())
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb, now, transitions := newTestBreaker(1, 2)

	cb.RecordFailure()
	assert.True(t, cb.IsOpen())

	*now = now.Add(2 * time.Minute)
	assert.False(t, cb.IsOpen())
	assert.Equal(t, StateHalfOpen, cb.GetState())

	cb.RecordSuccess()
	assert.Equal(t, StateHalfOpen, cb.GetState())
	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.GetState())

	assert.Equal(t, []transition{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
	}, *transitions)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, now, _ := newTestBreaker(1, 2)

	cb.RecordFailure()
	*now = now.Add(2 * time.Minute)
	assert.False(t, cb.IsOpen())

	cb.RecordFailure()
	assert.True(t, cb.IsOpen())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _, transitions := newTestBreaker(1, 1)

	cb.RecordFailure()
	cb.Reset()

	assert.False(t, cb.IsOpen())
	assert.Equal(t, 0, cb.GetFailureCount())
	assert.Len(t, *transitions, 2)
}

func TestCircuitBreaker_ConcurrentUse(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "concurrent", MaxFailures: 1000, ResetTimeout: time.Minute})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cb.RecordFailure()
			cb.IsOpen()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, cb.GetFailureCount())
}
