package circuit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/logger"
)

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateHalfOpen:
		return "HALF_OPEN"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

var (
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
	ErrTooManyRequests    = errors.New("too many requests")
)

type Config struct {
	MaxFailures   int                               // Consecutive failures before opening
	Timeout       time.Duration                     // How long to stay open
	MaxRequests   int                               // Trial calls allowed while half-open
	OnStateChange func(name string, from, to State) // Optional
}

func DefaultConfig() Config {
	return Config{
		MaxFailures: 5,
		Timeout:     30 * time.Second,
		MaxRequests: 1,
	}
}

// CircuitBreaker stops calling a failing dependency for Timeout after
// MaxFailures consecutive failures, then lets MaxRequests trial calls through
type CircuitBreaker struct {
	name            string
	config          Config
	state           State
	failures        int
	requests        int
	lastFailureTime time.Time
	now             func() time.Time
	mutex           sync.Mutex
	log             *logger.Logger
}

func NewCircuitBreaker(name string, config Config) *CircuitBreaker {
	defaults := DefaultConfig()
	if config.MaxFailures <= 0 {
		config.MaxFailures = defaults.MaxFailures
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxRequests <= 0 {
		config.MaxRequests = defaults.MaxRequests
	}

	return &CircuitBreaker{
		name:   name,
		config: config,
		state:  StateClosed,
		now:    time.Now,
		log:    logger.GetLogger("circuit." + name),
	}
}

// Execute runs fn unless the breaker is open. Context errors do not count
// as failures of the dependency.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := fn(ctx)
	cb.afterRequest(err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
	return err
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastFailureTime) < cb.config.Timeout {
			return ErrCircuitBreakerOpen
		}
		cb.setState(StateHalfOpen)
		fallthrough
	case StateHalfOpen:
		if cb.requests >= cb.config.MaxRequests {
			return ErrTooManyRequests
		}
		cb.requests++
	}
	return nil
}

func (cb *CircuitBreaker) afterRequest(success bool) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if success {
		cb.failures = 0
		if cb.state == StateHalfOpen {
			cb.setState(StateClosed)
		}
		return
	}

	cb.failures++
	cb.lastFailureTime = cb.now()
	if cb.state == StateHalfOpen || cb.failures >= cb.config.MaxFailures {
		cb.setState(StateOpen)
	}
}

// setState must be called with the mutex held
func (cb *CircuitBreaker) setState(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.requests = 0
	if to == StateClosed {
		cb.failures = 0
	}

	if to == StateOpen {
		cb.log.Warnf("Circuit breaker '%s' transitioned from %s to %s", cb.name, from, to)
	} else {
		cb.log.Infof("Circuit breaker '%s' transitioned from %s to %s", cb.name, from, to)
	}
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.name, from, to)
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Name() string {
	return cb.name
}
