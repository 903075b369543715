// Package circuitbreaker stops calling a failing dependency until a cool-down passes.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Execute while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
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

// Config holds breaker thresholds.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int
	// SuccessThreshold is the number of half-open successes that closes it again.
	SuccessThreshold int
	// Timeout is how long the circuit stays open before a trial call.
	Timeout time.Duration
	// OnStateChange is called with the breaker lock held; it must not call back into the breaker.
	OnStateChange func(from, to State)
}

// Breaker is safe for concurrent use. The wrapped call runs without the lock held.
type Breaker struct {
	mu        sync.Mutex
	cfg       Config
	state     State
	failures  int
	successes int
	openedAt  time.Time
	now       func() time.Time
}

// New creates a closed breaker. Zero config values fall back to 5 failures, 2 successes, 30s.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Breaker{cfg: cfg, state: StateClosed, now: time.Now}
}

// Execute runs fn unless the circuit is open. Context cancellation of the caller is not
// counted as a dependency failure.
func (b *Breaker) Execute(ctx context.Context, fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}

	err := fn()
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return err
	}
	b.record(err)
	return err
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return nil
	}
	if elapsed := b.now().Sub(b.openedAt); elapsed < b.cfg.Timeout {
		return fmt.Errorf("%w: retry in %v", ErrCircuitOpen, b.cfg.Timeout-elapsed)
	}
	b.transition(StateHalfOpen)
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.cfg.FailureThreshold {
			b.openedAt = b.now()
			b.transition(StateOpen)
		}
		return
	}

	b.failures = 0
	if b.state == StateHalfOpen {
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.transition(StateClosed)
		}
	}
}

func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.failures = 0
	b.successes = 0
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset closes the circuit.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateClosed)
}
