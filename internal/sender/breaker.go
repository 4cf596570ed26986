package sender

import (
	"sync"
	"time"
)

// BreakerState is one of the three canonical circuit breaker states.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// BreakerConfig mirrors the original system's CircuitBreakerConfig
// defaults: 5 consecutive failures trip it open, 3 consecutive successes
// in half-open close it again, a 60s open-state timeout before probing
// resumes, and at most 3 probe calls admitted per half-open period (the
// count is not decremented as probes finish).
type BreakerConfig struct {
	FailureThreshold  int
	SuccessThreshold  int
	Timeout           time.Duration
	HalfOpenMaxCalls  int
}

// DefaultBreakerConfig returns the spec's exact defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 3,
		Timeout:          60 * time.Second,
		HalfOpenMaxCalls: 3,
	}
}

// CircuitBreaker is one global instance shared across every target
// session — a burst of failures against one session trips delivery for
// all of them, the same as the system it's modeled on.
type CircuitBreaker struct {
	mu     sync.Mutex
	cfg    BreakerConfig
	state  BreakerState
	fails  int
	succ   int
	probes int
	openAt time.Time
}

// NewCircuitBreaker constructs a closed CircuitBreaker.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg, state: BreakerClosed}
}

// Allow reports whether a call may proceed right now, transitioning
// Open -> HalfOpen once the timeout has elapsed.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if time.Since(b.openAt) < b.cfg.Timeout {
			return false
		}
		b.state = BreakerHalfOpen
		b.succ = 0
		b.probes = 1
		return true
	case BreakerHalfOpen:
		if b.probes >= b.cfg.HalfOpenMaxCalls {
			return false
		}
		b.probes++
		return true
	default:
		return false
	}
}

// RecordSuccess reports a successful call.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerHalfOpen:
		b.succ++
		if b.succ >= b.cfg.SuccessThreshold {
			b.resetLocked()
		}
	case BreakerClosed:
		b.fails = 0
	}
}

// RecordFailure reports a failed call, tripping the breaker open from
// Closed on FailureThreshold consecutive failures, or immediately from
// HalfOpen on a single failed probe.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerHalfOpen:
		b.tripLocked()
	case BreakerClosed:
		b.fails++
		if b.fails >= b.cfg.FailureThreshold {
			b.tripLocked()
		}
	}
}

func (b *CircuitBreaker) tripLocked() {
	b.state = BreakerOpen
	b.openAt = time.Now()
	b.fails = 0
	b.succ = 0
	b.probes = 0
}

func (b *CircuitBreaker) resetLocked() {
	b.state = BreakerClosed
	b.fails = 0
	b.succ = 0
	b.probes = 0
}

// State returns the breaker's current state, for metrics reporting.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
