package infra

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ── Circuit Breaker ───────────────────────────────────────────────────────────
// Closed → Open → Half-Open. The terminal wraps every backend call in one so a
// dead server fails fast instead of stacking timeouts at the register.

// CBState represents the current circuit breaker state.
type CBState int

const (
	CBClosed   CBState = iota // requests flow
	CBOpen                    // fast-fail
	CBHalfOpen                // probing
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
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig holds tunable parameters. Zero values take defaults.
type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int           // consecutive failures to trip (default 5)
	SuccessThreshold int           // half-open successes to close (default 1)
	OpenTimeout      time.Duration // time open before probing (default 30s)
	// IsFailure decides which errors count against the backend. Defaults to
	// any non-nil error that is not a context cancellation.
	IsFailure func(error) bool
}

// CircuitBreaker is safe for concurrent use.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	now func() time.Time

	mu          sync.Mutex
	state       CBState
	failures    int
	successes   int
	openedAt    time.Time
	probeActive bool
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = defaultIsFailure
	}
	if cfg.Name == "" {
		cfg.Name = "backend"
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

func defaultIsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// State returns the current state, promoting open to half-open once the
// timeout has elapsed.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.tickLocked()
	return cb.state
}

func (cb *CircuitBreaker) tickLocked() {
	if cb.state == CBOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.OpenTimeout {
		cb.transitionLocked(CBHalfOpen)
	}
}

// Execute runs fn unless the breaker is open. In half-open only one probe
// runs at a time; concurrent callers fail fast.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	cb.mu.Lock()
	cb.tickLocked()
	switch {
	case cb.state == CBOpen:
		cb.mu.Unlock()
		return ErrCircuitOpen
	case cb.state == CBHalfOpen && cb.probeActive:
		cb.mu.Unlock()
		return ErrCircuitOpen
	case cb.state == CBHalfOpen:
		cb.probeActive = true
	}
	cb.mu.Unlock()

	err := fn(ctx)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probeActive = false
	if cb.cfg.IsFailure(err) {
		cb.onFailureLocked()
	} else {
		cb.onSuccessLocked()
	}
	return err
}

func (cb *CircuitBreaker) onFailureLocked() {
	cb.failures++
	switch cb.state {
	case CBClosed:
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.transitionLocked(CBOpen)
		}
	case CBHalfOpen:
		cb.transitionLocked(CBOpen)
	}
}

func (cb *CircuitBreaker) onSuccessLocked() {
	switch cb.state {
	case CBClosed:
		cb.failures = 0
	case CBHalfOpen:
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.transitionLocked(CBClosed)
		}
	}
}

func (cb *CircuitBreaker) transitionLocked(to CBState) {
	from := cb.state
	cb.state = to
	cb.successes = 0
	switch to {
	case CBOpen:
		cb.openedAt = cb.now()
		cb.failures = 0
	case CBClosed:
		cb.failures = 0
	}
	log.Warn().Str("breaker", cb.cfg.Name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
}
