package errors

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker fails fast. Callers
// treat it like any other delivery failure.
var ErrCircuitOpen = errors.New("circuit breaker is open")

var errHalfOpenSaturated = errors.New("too many requests in half-open")

// BreakerSettings tunes a CircuitBreaker for one downstream.
type BreakerSettings struct {
	// FailureRatio is the error rate that trips the breaker once
	// MinRequests calls have been observed.
	FailureRatio float64
	MinRequests  int
	// OpenTimeout is how long the breaker fails fast before probing
	// the downstream again.
	OpenTimeout time.Duration
	// HalfOpenProbes is how many consecutive successes close the
	// breaker again.
	HalfOpenProbes int
}

// EmailBreakerSettings fits the transactional email provider: a sweep
// can burst hundreds of notices, so the breaker needs few samples to
// react, and provider outages tend to last minutes rather than
// seconds.
func EmailBreakerSettings() BreakerSettings {
	return BreakerSettings{
		FailureRatio:   0.5,
		MinRequests:    5,
		OpenTimeout:    2 * time.Minute,
		HalfOpenProbes: 3,
	}
}

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// CircuitBreaker fails fast once the downstream error rate crosses the
// configured ratio, then probes it again after the open timeout.
type CircuitBreaker struct {
	settings BreakerSettings

	mu              sync.Mutex
	state           State
	failures        int
	successes       int
	requests        int
	lastFailureTime time.Time
}

func NewCircuitBreaker(settings BreakerSettings) *CircuitBreaker {
	if settings.FailureRatio <= 0 {
		settings.FailureRatio = 0.5
	}
	if settings.MinRequests <= 0 {
		settings.MinRequests = 5
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = 30 * time.Second
	}
	if settings.HalfOpenProbes <= 0 {
		settings.HalfOpenProbes = 3
	}

	return &CircuitBreaker{
		settings: settings,
		state:    StateClosed,
	}
}

func (cb *CircuitBreaker) Call(fn func() error) error {
	if fn == nil {
		return nil
	}

	cb.mu.Lock()
	if cb.state == StateOpen {
		if time.Since(cb.lastFailureTime) >= cb.settings.OpenTimeout {
			cb.transitionToHalfOpenLocked()
		} else {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
	}

	if cb.state == StateHalfOpen && cb.requests >= cb.settings.HalfOpenProbes {
		cb.mu.Unlock()
		return errHalfOpenSaturated
	}
	cb.mu.Unlock()

	callErr := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if callErr != nil {
		cb.failures++
		cb.requests++

		if cb.state == StateHalfOpen {
			cb.tripToOpenLocked()
		} else {
			cb.evaluateStateLocked()
		}

		return callErr
	}

	cb.successes++
	cb.requests++

	if cb.state == StateHalfOpen && cb.successes >= cb.settings.HalfOpenProbes {
		cb.state = StateClosed
		cb.resetCountersLocked()
	}

	return nil
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) evaluateStateLocked() {
	if cb.requests < cb.settings.MinRequests {
		return
	}

	errorRate := float64(cb.failures) / float64(cb.requests)
	if errorRate >= cb.settings.FailureRatio {
		cb.tripToOpenLocked()
	}
}

func (cb *CircuitBreaker) resetCountersLocked() {
	cb.failures = 0
	cb.successes = 0
	cb.requests = 0
}

func (cb *CircuitBreaker) transitionToHalfOpenLocked() {
	cb.state = StateHalfOpen
	cb.resetCountersLocked()
}

func (cb *CircuitBreaker) tripToOpenLocked() {
	cb.state = StateOpen
	cb.lastFailureTime = time.Now()
	cb.resetCountersLocked()
}
