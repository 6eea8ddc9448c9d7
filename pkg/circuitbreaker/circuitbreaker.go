package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrOpen is returned without calling the guarded function while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker open")

// State represents the circuit breaker state
type State int

const (
	StateClosed   State = iota // calls pass through
	StateOpen                  // calls fail fast with ErrOpen
	StateHalfOpen              // a limited number of probe calls pass
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds circuit breaker configuration
type Config struct {
	FailureThreshold    int           // consecutive failures that open the circuit
	SuccessThreshold    int           // half-open successes that close it again
	Timeout             time.Duration // open -> half-open delay
	MaxRequestsHalfOpen int
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig() Config {
	return Config{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		MaxRequestsHalfOpen: 3,
	}
}

// Stats holds circuit breaker statistics
type Stats struct {
	State            State
	FailureCount     int
	SuccessCount     int
	HalfOpenRequests int
	LastFailureTime  time.Time
	StateChangeTime  time.Time
}

type CircuitBreaker struct {
	config Config
	now    func() time.Time

	mu    sync.Mutex
	stats Stats

	onStateChange func(from, to State)
}

func New(config Config) *CircuitBreaker {
	cb := &CircuitBreaker{config: config, now: time.Now}
	cb.stats.StateChangeTime = cb.now()
	return cb
}

// OnStateChange registers a callback run synchronously on every transition,
// outside the breaker's lock.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// Execute runs fn through the breaker. A cancelled ctx is not counted as a failure.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := cb.before(); err != nil {
		return err
	}
	err := fn()
	if err != nil && ctx.Err() != nil {
		cb.release()
		return err
	}
	cb.after(err == nil)
	if err != nil {
		return fmt.Errorf("circuit breaker execution failed: %w", err)
	}
	return nil
}

// ExecuteWithResult is Execute for functions returning a value.
func ExecuteWithResult[T any](ctx context.Context, cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	var result T
	err := cb.Execute(ctx, func() error {
		var err error
		result, err = fn()
		return err
	})
	return result, err
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	var notify func()
	defer func() {
		cb.mu.Unlock()
		if notify != nil {
			notify()
		}
	}()

	switch cb.stats.State {
	case StateOpen:
		if cb.now().Sub(cb.stats.StateChangeTime) < cb.config.Timeout {
			return ErrOpen
		}
		notify = cb.transitionLocked(StateHalfOpen)
		cb.stats.HalfOpenRequests++
	case StateHalfOpen:
		if cb.stats.HalfOpenRequests >= cb.config.MaxRequestsHalfOpen {
			return ErrOpen
		}
		cb.stats.HalfOpenRequests++
	}
	return nil
}

func (cb *CircuitBreaker) release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.stats.State == StateHalfOpen && cb.stats.HalfOpenRequests > 0 {
		cb.stats.HalfOpenRequests--
	}
}

func (cb *CircuitBreaker) after(success bool) {
	cb.mu.Lock()
	var notify func()
	defer func() {
		cb.mu.Unlock()
		if notify != nil {
			notify()
		}
	}()

	if success {
		cb.stats.SuccessCount++
		cb.stats.FailureCount = 0
		if cb.stats.State == StateHalfOpen && cb.stats.SuccessCount >= cb.config.SuccessThreshold {
			notify = cb.transitionLocked(StateClosed)
		}
		return
	}

	cb.stats.FailureCount++
	cb.stats.SuccessCount = 0
	cb.stats.LastFailureTime = cb.now()
	switch {
	case cb.stats.State == StateHalfOpen:
		notify = cb.transitionLocked(StateOpen)
	case cb.stats.State == StateClosed && cb.stats.FailureCount >= cb.config.FailureThreshold:
		notify = cb.transitionLocked(StateOpen)
	}
}

func (cb *CircuitBreaker) transitionLocked(to State) func() {
	from := cb.stats.State
	if from == to {
		return nil
	}
	cb.stats.State = to
	cb.stats.StateChangeTime = cb.now()
	cb.stats.FailureCount = 0
	cb.stats.SuccessCount = 0
	cb.stats.HalfOpenRequests = 0

	if fn := cb.onStateChange; fn != nil {
		return func() { fn(from, to) }
	}
	return nil
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stats.State
}

func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stats
}

// Reset closes the circuit.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	notify := cb.transitionLocked(StateClosed)
	cb.mu.Unlock()
	if notify != nil {
		notify()
	}
}
