package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/logger"
	"github.com/androsik2006/radmon/internal/observability/metrics"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// StateClosed means the circuit is closed and requests are flowing normally.
	StateClosed CircuitState = iota
	// StateHalfOpen means the circuit is testing if the sink has recovered.
	StateHalfOpen
	// StateOpen means the circuit is open and requests are being rejected.
	StateOpen
)

// String returns the string representation of CircuitState.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

var (
	// ErrCircuitBreakerOpen is returned when the circuit breaker is open.
	ErrCircuitBreakerOpen = errors.Newf("circuit breaker is open").
				Component("notification").
				Category(errors.CategoryLimit).
				Build()
	// ErrTooManyRequests is returned when the circuit breaker is half-open and has already allowed a test request.
	ErrTooManyRequests = errors.Newf("circuit breaker is half-open, too many requests").
				Component("notification").
				Category(errors.CategoryLimit).
				Build()
)

// CircuitBreakerConfig holds configuration for a circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures before opening the circuit.
	MaxFailures int
	// Timeout is how long to wait before transitioning from Open to Half-Open.
	Timeout time.Duration
	// HalfOpenMaxRequests is the maximum number of requests allowed in half-open state.
	HalfOpenMaxRequests int
}

// DefaultCircuitBreakerConfig returns default circuit breaker configuration.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxFailures:         5,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 1,
	}
}

// Validate checks if the circuit breaker configuration is valid.
func (c CircuitBreakerConfig) Validate() error {
	if c.MaxFailures < 1 {
		return fmt.Errorf("max_failures must be at least 1, got %d", c.MaxFailures)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.HalfOpenMaxRequests < 1 {
		return fmt.Errorf("half_open_max_requests must be at least 1, got %d", c.HalfOpenMaxRequests)
	}
	return nil
}

// CircuitBreaker tracks consecutive failures of one sink and opens the circuit
// after a threshold is reached, rejecting attempts until the timeout elapsed.
type CircuitBreaker struct {
	config           CircuitBreakerConfig
	state            CircuitState
	failures         int
	lastFailureTime  time.Time
	lastStateChange  time.Time
	halfOpenRequests int
	mu               sync.RWMutex
	metrics          *metrics.NotificationMetrics
	sinkName         string
	log              logger.Logger
}

// NewCircuitBreaker creates a breaker for the named sink. An invalid config
// falls back to the defaults.
func NewCircuitBreaker(config CircuitBreakerConfig, m *metrics.NotificationMetrics, sinkName string) *CircuitBreaker {
	log := GetLogger()
	if err := config.Validate(); err != nil {
		log.Warn("circuit breaker config invalid, using defaults",
			logger.String("sink", sinkName),
			logger.Error(err))
		config = DefaultCircuitBreakerConfig()
	}

	cb := &CircuitBreaker{
		config:          config,
		state:           StateClosed,
		lastStateChange: time.Now(),
		metrics:         m,
		sinkName:        sinkName,
		log:             log,
	}
	if cb.metrics != nil {
		cb.metrics.UpdateCircuitBreakerState(sinkName, int(StateClosed))
	}
	return cb
}

// Call executes fn if the circuit breaker allows it and records the result.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.beforeCall(); err != nil {
		state, failures := cb.State(), cb.Failures()
		return fmt.Errorf("circuit breaker rejected request (%v, %d consecutive failures): %w",
			state, failures, err)
	}

	err := fn(ctx)
	cb.afterCall(err)
	return err
}

func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil

	case StateOpen:
		if time.Since(cb.lastStateChange) >= cb.config.Timeout {
			cb.setState(StateHalfOpen)
			cb.halfOpenRequests = 1 // the transition call is the first probe
			return nil
		}
		return ErrCircuitBreakerOpen

	case StateHalfOpen:
		if cb.halfOpenRequests >= cb.config.HalfOpenMaxRequests {
			return ErrTooManyRequests
		}
		cb.halfOpenRequests++
		return nil

	default:
		return ErrCircuitBreakerOpen
	}
}

func (cb *CircuitBreaker) afterCall(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.failures = 0
		cb.lastFailureTime = time.Time{}
		if cb.state == StateHalfOpen {
			cb.setState(StateClosed)
		}
		return
	}

	// Caller cancellation says nothing about the sink.
	if errors.Is(err, context.Canceled) {
		if cb.state == StateHalfOpen && cb.halfOpenRequests > 0 {
			cb.halfOpenRequests--
		}
		return
	}

	cb.failures++
	cb.lastFailureTime = time.Now()

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.config.MaxFailures {
			cb.setState(StateOpen)
		}
	case StateHalfOpen:
		cb.setState(StateOpen)
	case StateOpen:
	}
}

// setState must be called with mu held.
func (cb *CircuitBreaker) setState(newState CircuitState) {
	if cb.state == newState {
		return
	}
	oldState := cb.state
	cb.state = newState
	cb.lastStateChange = time.Now()
	if newState != StateHalfOpen {
		cb.halfOpenRequests = 0
	}

	if cb.metrics != nil {
		cb.metrics.UpdateCircuitBreakerState(cb.sinkName, int(newState))
	}

	cb.log.Info("circuit breaker state transition",
		logger.String("sink", cb.sinkName),
		logger.String("old_state", oldState.String()),
		logger.String("new_state", newState.String()),
		logger.Int("consecutive_failures", cb.failures))
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Failures returns the current number of consecutive failures.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failures
}

// Reset manually resets the circuit breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.lastFailureTime = time.Time{}
	cb.halfOpenRequests = 0
	cb.setState(StateClosed)
}

// Stats returns current statistics about the circuit breaker.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return CircuitBreakerStats{
		State:            cb.state,
		Failures:         cb.failures,
		LastFailureTime:  cb.lastFailureTime,
		LastStateChange:  cb.lastStateChange,
		HalfOpenRequests: cb.halfOpenRequests,
	}
}

// CircuitBreakerStats contains statistics about a circuit breaker's state.
type CircuitBreakerStats struct {
	State            CircuitState `json:"-"`
	Failures         int          `json:"failures"`
	LastFailureTime  time.Time    `json:"last_failure_time"`
	LastStateChange  time.Time    `json:"last_state_change"`
	HalfOpenRequests int          `json:"half_open_requests"`
}

// BreakerSink guards a sink with a circuit breaker.
type BreakerSink struct {
	next    Sink
	breaker *CircuitBreaker
}

// NewBreakerSink wraps next.
func NewBreakerSink(next Sink, config CircuitBreakerConfig, m *metrics.NotificationMetrics) *BreakerSink {
	return &BreakerSink{next: next, breaker: NewCircuitBreaker(config, m, next.Name())}
}

func (s *BreakerSink) Name() string { return s.next.Name() }

func (s *BreakerSink) Send(ctx context.Context, subject, body string) error {
	return s.breaker.Call(ctx, func(ctx context.Context) error {
		return s.next.Send(ctx, subject, body)
	})
}

// Breaker exposes the underlying breaker.
func (s *BreakerSink) Breaker() *CircuitBreaker { return s.breaker }
