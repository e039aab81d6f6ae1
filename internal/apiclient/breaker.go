package apiclient

import (
	"errors"
	"sync"
	"time"
)

// Circuit breaker around the health probe (Closed → Open → Half-Open). Once the
// backend has failed FailureThreshold probes in a row the client stops probing
// and reports "server unreachable" until OpenTimeout elapses or the operator
// retries by hand (Reset).

type CBState int

const (
	CBClosed   CBState = iota // probes run
	CBOpen                    // Ping reports unreachable without probing
	CBHalfOpen                // next probe decides
)

func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned by Execute while the breaker is open.
var ErrCircuitOpen = errors.New("health probe skipped: backend marked unreachable")

type CircuitBreakerConfig struct {
	FailureThreshold int           // failed probes in a row before giving up (default 3)
	SuccessThreshold int           // good half-open probes needed to recover (default 1)
	OpenTimeout      time.Duration // how long Ping stays quiet (default 30s)
}

type CircuitBreaker struct {
	mu               sync.Mutex
	state            CBState
	failureCount     int
	successCount     int
	lastFailureTime  time.Time
	failureThreshold int
	successThreshold int
	openTimeout      time.Duration
	now              func() time.Time
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		state:            CBClosed,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		openTimeout:      cfg.OpenTimeout,
		now:              time.Now,
	}
}

// State returns the current state, moving open → half-open once the timeout elapsed.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CBOpen && cb.now().Sub(cb.lastFailureTime) >= cb.openTimeout {
		cb.state = CBHalfOpen
		cb.successCount = 0
	}
	return cb.state
}

// Execute runs one health probe unless the backend is marked unreachable.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if cb.State() == CBOpen {
		return ErrCircuitOpen
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.probeFailed()
		return err
	}
	cb.probeSucceeded()
	return nil
}

// Reset forgets past failures; the operator asked to retry.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = CBClosed
	cb.failureCount = 0
	cb.successCount = 0
}

// probeFailed runs with cb.mu held.
func (cb *CircuitBreaker) probeFailed() {
	cb.failureCount++
	cb.lastFailureTime = cb.now()

	switch cb.state {
	case CBClosed:
		if cb.failureCount >= cb.failureThreshold {
			cb.state = CBOpen
			cb.successCount = 0
		}
	case CBHalfOpen:
		cb.state = CBOpen
		cb.failureCount = 0
	}
}

// probeSucceeded runs with cb.mu held.
func (cb *CircuitBreaker) probeSucceeded() {
	switch cb.state {
	case CBClosed:
		cb.failureCount = 0
	case CBHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.state = CBClosed
			cb.failureCount = 0
			cb.successCount = 0
		}
	}
}
