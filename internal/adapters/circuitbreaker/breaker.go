// Package circuitbreaker protects the reflective proposer's LLM completion
// calls from a stalled or failing endpoint: once a call fails repeatedly,
// further calls are rejected immediately instead of queueing up behind a
// dead backend, giving the run a chance to keep making reflective progress
// on trainset batches that don't need that particular call to succeed.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Execute while the breaker is open, without
// invoking fn.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the breaker's current posture toward the protected call.
type State int

const (
	StateClosed   State = iota // calls pass through
	StateOpen                  // calls are rejected until timeout elapses
	StateHalfOpen              // a trial window of calls decides closed vs. open
)

// CircuitBreaker guards a single protected call (an LLM completion request,
// in this codebase) behind a closed/open/half-open state machine.
type CircuitBreaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	lastFailure time.Time

	maxFailures int
	timeout     time.Duration
	halfOpenMax int
}

// New builds a closed breaker that opens after maxFailures consecutive
// failures and stays open for timeout before trialing a half-open window.
func New(maxFailures int, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:       StateClosed,
		maxFailures: maxFailures,
		timeout:     timeout,
		halfOpenMax: 3,
	}
}

// Execute runs fn if the breaker is closed or trialing half-open, counting
// the outcome toward the next state transition. While open it returns
// ErrCircuitOpen without calling fn.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()

	if cb.state == StateOpen {
		if time.Since(cb.lastFailure) > cb.timeout {
			cb.state = StateHalfOpen
			cb.successes = 0
		} else {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailure = time.Now()
		if cb.failures >= cb.maxFailures {
			cb.state = StateOpen
		}
		return err
	}

	if cb.state == StateHalfOpen {
		cb.successes++
		if cb.successes >= cb.halfOpenMax {
			cb.state = StateClosed
			cb.failures = 0
		}
	} else {
		cb.failures = 0
	}

	return nil
}

// State reports the breaker's current posture, for observability (see
// metrics.LLMCircuitState).
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
