// Package circuitbreaker stops calling a failing dependency for a cool-down
// period and probes it before letting traffic through again.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/portfolio-dashboard/internal/logging"
)

// State represents the circuit breaker state
type State string

const (
	// StateClosed lets every call through
	StateClosed State = "closed"
	// StateOpen rejects calls until the cool-down has elapsed
	StateOpen State = "open"
	// StateHalfOpen lets a limited number of probe calls through
	StateHalfOpen State = "half_open"
)

// ErrCircuitOpen is returned instead of calling a dependency that is failing
var ErrCircuitOpen = errors.New("service temporarily unavailable, please try again shortly")

// Config configures a circuit breaker
type Config struct {
	Name string
	// ConsecutiveFailures opens the circuit
	ConsecutiveFailures int
	// Cooldown is how long the circuit stays open before probing
	Cooldown time.Duration
	// HalfOpenProbes successful probes close the circuit again
	HalfOpenProbes int
	// IsFailure decides which errors count. Nil counts every error.
	IsFailure func(error) bool
}

// DefaultConfig returns a breaker that opens after 5 consecutive failures
func DefaultConfig(name string) Config {
	return Config{
		Name:                name,
		ConsecutiveFailures: 5,
		Cooldown:            30 * time.Second,
		HalfOpenProbes:      1,
	}
}

// Stats is a point-in-time view of a breaker
type Stats struct {
	Name             string    `json:"name"`
	State            State     `json:"state"`
	ConsecutiveFails int       `json:"consecutiveFails"`
	Rejected         int64     `json:"rejected"`
	LastStateChange  time.Time `json:"lastStateChange"`
}

// CircuitBreaker implements the circuit breaker pattern
type CircuitBreaker struct {
	cfg    Config
	now    func() time.Time
	logger *logging.Logger

	mu               sync.Mutex
	state            State
	consecutiveFails int
	probesInFlight   int
	probeSuccesses   int
	rejected         int64
	lastStateChange  time.Time
}

// New creates a closed circuit breaker
func New(cfg Config, logger *logging.Logger) *CircuitBreaker {
	if cfg.ConsecutiveFailures < 1 {
		cfg.ConsecutiveFailures = 1
	}
	if cfg.HalfOpenProbes < 1 {
		cfg.HalfOpenProbes = 1
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &CircuitBreaker{
		cfg:             cfg,
		now:             time.Now,
		logger:          logger.WithField("circuitBreaker", cfg.Name),
		state:           StateClosed,
		lastStateChange: time.Now(),
	}
}

// Execute runs fn unless the circuit is open, and records its outcome
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.beforeCall(); err != nil {
		return err
	}
	err := fn()
	cb.afterCall(err)
	return err
}

func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.lastStateChange) < cb.cfg.Cooldown {
			cb.rejected++
			return ErrCircuitOpen
		}
		cb.setState(StateHalfOpen)
	}

	if cb.state == StateHalfOpen {
		if cb.probesInFlight+cb.probeSuccesses >= cb.cfg.HalfOpenProbes {
			cb.rejected++
			return ErrCircuitOpen
		}
		cb.probesInFlight++
	}
	return nil
}

func (cb *CircuitBreaker) afterCall(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := err != nil && (cb.cfg.IsFailure == nil || cb.cfg.IsFailure(err))

	switch cb.state {
	case StateClosed:
		if !failed {
			cb.consecutiveFails = 0
			return
		}
		cb.consecutiveFails++
		if cb.consecutiveFails >= cb.cfg.ConsecutiveFailures {
			cb.setState(StateOpen)
		}

	case StateHalfOpen:
		cb.probesInFlight--
		if failed {
			cb.setState(StateOpen)
			return
		}
		cb.probeSuccesses++
		if cb.probeSuccesses >= cb.cfg.HalfOpenProbes {
			cb.setState(StateClosed)
		}
	}
}

// setState must be called with mu held
func (cb *CircuitBreaker) setState(state State) {
	if cb.state == state {
		return
	}
	cb.logger.WithFields(map[string]interface{}{
		"from":             cb.state,
		"to":               state,
		"consecutiveFails": cb.consecutiveFails,
	}).Warn("Circuit breaker state changed")

	cb.state = state
	cb.lastStateChange = cb.now()
	cb.probesInFlight = 0
	cb.probeSuccesses = 0
	if state == StateClosed {
		cb.consecutiveFails = 0
	}
}

// State returns the current state. An open circuit whose cool-down has
// elapsed still reports open until the next call probes it.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns a snapshot of the breaker counters
func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Stats{
		Name:             cb.cfg.Name,
		State:            cb.state,
		ConsecutiveFails: cb.consecutiveFails,
		Rejected:         cb.rejected,
		LastStateChange:  cb.lastStateChange,
	}
}

// Reset closes the circuit
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setState(StateClosed)
	cb.consecutiveFails = 0
}
