// Package retry runs an operation with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

var (
	// ErrMaxAttemptsExceeded wraps the last error once every attempt failed.
	ErrMaxAttemptsExceeded = errors.New("max retry attempts exceeded")
	// ErrContextCancelled is returned when ctx ends between attempts.
	ErrContextCancelled = errors.New("context cancelled during retry")
)

// Config controls the backoff schedule.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// IsRetryable decides whether an error is worth another attempt.
	// Defaults to DefaultIsRetryable.
	IsRetryable func(error) bool
}

// DefaultConfig returns 3 attempts starting at 100ms and doubling.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		IsRetryable:  DefaultIsRetryable,
	}
}

func (c *Config) setDefaults() {
	d := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = d.InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.Multiplier < 1 {
		c.Multiplier = d.Multiplier
	}
	if c.IsRetryable == nil {
		c.IsRetryable = d.IsRetryable
	}
}

// permanentError marks an error that must not be retried.
type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so Retry returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// DefaultIsRetryable retries network errors and deadline expiry of a single attempt.
func DefaultIsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Retry calls fn until it succeeds, returns a non-retryable error, ctx ends or the
// attempts run out.
func Retry(ctx context.Context, cfg Config, fn func() error) error {
	cfg.setDefaults()

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrContextCancelled, err)
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}
		if !cfg.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrMaxAttemptsExceeded, cfg.MaxAttempts, lastErr)
}
