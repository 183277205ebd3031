package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"expense-tracker/internal/mail"
	"expense-tracker/internal/models"
)

var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

const (
	StateClosed models.CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

type CircuitBreakerConfig struct {
	Name            string
	MaxFailures     int
	ResetTimeout    time.Duration
	HalfOpenMaxSucc int
	// OnStateChange runs after every transition, outside the breaker lock
	OnStateChange func(name string, from, to models.CircuitBreakerState)
}

// DefaultCircuitBreakerConfig guards the outbound mail provider
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:            "mailer",
		MaxFailures:     5,
		ResetTimeout:    30 * time.Second,
		HalfOpenMaxSucc: 2,
	}
}

// CircuitBreaker stops calling a failing dependency for ResetTimeout, then lets
// trial calls through until HalfOpenMaxSucc of them succeed in a row.
type CircuitBreaker struct {
	mu       sync.Mutex
	config   CircuitBreakerConfig
	state    models.CircuitBreakerState
	failures int
	trials   int
	openedAt time.Time
	now      func() time.Time
}

func NewCircuitBreaker(config CircuitBreakerConfig) CircuitBreakerInterface {
	config.MaxFailures = max(config.MaxFailures, 1)
	config.HalfOpenMaxSucc = max(config.HalfOpenMaxSucc, 1)

	return &CircuitBreaker{config: config, state: StateClosed, now: time.Now}
}

// update applies change under the lock and reports the transition, if any
func (cb *CircuitBreaker) update(change func()) models.CircuitBreakerState {
	cb.mu.Lock()
	from := cb.state
	change()
	to := cb.state
	cb.mu.Unlock()

	if from != to && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
	return to
}

func (cb *CircuitBreaker) setState(state models.CircuitBreakerState) {
	cb.state = state
	cb.trials = 0
	if state == StateClosed {
		cb.failures = 0
	}
}

// IsOpen reports whether calls should be skipped. An open breaker whose
// timeout has run out moves to half-open and lets the caller try again.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.update(func() {
		if cb.state == StateOpen && cb.now().Sub(cb.openedAt) > cb.config.ResetTimeout {
			cb.setState(StateHalfOpen)
		}
	}) == StateOpen
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.update(func() {
		switch cb.state {
		case StateClosed:
			cb.failures = 0
		case StateHalfOpen:
			cb.trials++
			if cb.trials >= cb.config.HalfOpenMaxSucc {
				cb.setState(StateClosed)
			}
		}
	})
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.update(func() {
		cb.openedAt = cb.now()
		switch cb.state {
		case StateClosed:
			cb.failures++
			if cb.failures >= cb.config.MaxFailures {
				cb.setState(StateOpen)
			}
		case StateHalfOpen:
			cb.setState(StateOpen)
		}
	})
}

func (cb *CircuitBreaker) Reset() {
	cb.update(func() { cb.setState(StateClosed) })
}

func (cb *CircuitBreaker) GetState() models.CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) GetFailureCount() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// sendGuarded sends msg unless the breaker is open. A message the provider
// rejects says nothing about the provider's health and leaves the breaker alone.
func sendGuarded(ctx context.Context, breaker CircuitBreakerInterface, mailer mail.MailerInterface, msg *mail.Message) error {
	if breaker.IsOpen() {
		return ErrCircuitBreakerOpen
	}

	err := mailer.Send(ctx, msg)
	switch {
	case err == nil:
		breaker.RecordSuccess()
	case !errors.Is(err, mail.ErrDeliveryRejected):
		breaker.RecordFailure()
	}
	return err
}
