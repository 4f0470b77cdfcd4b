package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is a circuit breaker's current position in the closed/open/half-open
// state machine.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// ErrCircuitOpen is returned by Execute when the breaker is open and the
// reset timeout has not yet elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker trips after a run of consecutive failures, rejecting calls
// until resetTimeout has passed, then allows a single probe call through.
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold int
	resetTimeout     time.Duration

	state       State
	failures    int
	openedAt    time.Time
	probing     bool
}

// NewCircuitBreaker creates a breaker. A zero failureThreshold defaults to 5
// and a zero resetTimeout defaults to 30s.
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		state:            StateClosed,
	}
}

// State returns the breaker's current state, transitioning Open to HalfOpen
// as a side effect once resetTimeout has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

func (cb *CircuitBreaker) stateLocked() State {
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.resetTimeout {
		cb.state = StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to closed with a zeroed failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
}

// Execute runs fn through the breaker. In the open state it fails fast with
// ErrCircuitOpen; in half-open it allows exactly one probe call through and
// closes or reopens based on the outcome.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	cb.mu.Lock()
	state := cb.stateLocked()
	if state == StateOpen || (state == StateHalfOpen && cb.probing) {
		cb.mu.Unlock()
		return nil, ErrCircuitOpen
	}
	if state == StateHalfOpen {
		cb.probing = true
	}
	cb.mu.Unlock()

	result, err := fn(ctx)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probing = false

	if err != nil {
		cb.failures++
		if cb.state == StateHalfOpen || cb.failures >= cb.failureThreshold {
			cb.state = StateOpen
			cb.openedAt = time.Now()
		}
		return result, err
	}

	cb.state = StateClosed
	cb.failures = 0
	return result, nil
}
