// Package retry runs an operation again with exponential backoff until it succeeds,
// the error is not retryable, attempts run out, or the context ends.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// Config defines retry behaviour.
type Config struct {
	// MaxAttempts counts the first call too.
	MaxAttempts int
	// InitialDelay is the wait after the first failure.
	InitialDelay time.Duration
	// MaxDelay caps a single wait.
	MaxDelay time.Duration
	// MaxElapsedTime caps the whole run (0 = no limit).
	MaxElapsedTime time.Duration
	// Multiplier grows the delay after every failure.
	Multiplier float64
	// Jitter spreads delays in [d/2, 3d/2).
	Jitter bool
	// OnRetry observes every scheduled retry.
	OnRetry func(attempt int, err error, next time.Duration)

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// DefaultConfig returns settings suited for startup calls to Telegram and the database.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     15 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

func (c *Config) normalize() error {
	if c.MaxAttempts <= 0 {
		return errors.New("retry: MaxAttempts must be positive")
	}
	if c.InitialDelay <= 0 {
		return errors.New("retry: InitialDelay must be positive")
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.InitialDelay > c.MaxDelay {
		return errors.New("retry: InitialDelay cannot exceed MaxDelay")
	}
	if c.Multiplier == 0 {
		c.Multiplier = 2.0
	}
	if c.Multiplier < 1.0 {
		return errors.New("retry: Multiplier must be >= 1.0")
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.after == nil {
		c.after = time.After
	}
	return nil
}

// Func is an operation that may be retried.
type Func func(ctx context.Context) error

// ExhaustedError is returned when attempts or the time budget run out.
type ExhaustedError struct {
	LastError error
	Attempts  int
	Elapsed   time.Duration
	Reason    string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: %s after %s (%d attempts): %v", e.Reason, e.Elapsed, e.Attempts, e.LastError)
}

func (e *ExhaustedError) Unwrap() error { return e.LastError }

// Permanent marks err as not retryable for DefaultRetryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// DefaultRetryable retries everything except cancellation and Permanent errors.
func DefaultRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var p *permanentError
	return !errors.As(err, &p)
}

// Do runs fn with DefaultRetryable.
func Do(ctx context.Context, cfg Config, fn Func) error {
	return DoWithRetryable(ctx, cfg, fn, DefaultRetryable)
}

// DoWithRetryable runs fn until it succeeds or isRetryable says stop.
func DoWithRetryable(ctx context.Context, cfg Config, fn Func, isRetryable func(error) bool) error {
	if err := cfg.normalize(); err != nil {
		return err
	}

	start := cfg.now()
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		delay := cfg.jitter(cfg.delay(attempt))
		elapsed := cfg.now().Sub(start)
		if cfg.MaxElapsedTime > 0 && elapsed+delay > cfg.MaxElapsedTime {
			return &ExhaustedError{LastError: lastErr, Attempts: attempt, Elapsed: elapsed, Reason: "max elapsed time exceeded"}
		}
		if deadline, ok := ctx.Deadline(); ok {
			if rem := time.Until(deadline); delay > rem {
				delay = rem
			}
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, lastErr, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-cfg.after(delay):
		}
	}
	return &ExhaustedError{LastError: lastErr, Attempts: cfg.MaxAttempts, Elapsed: cfg.now().Sub(start), Reason: "max attempts exceeded"}
}

// delay returns InitialDelay * Multiplier^(attempt-1), capped at MaxDelay.
func (c Config) delay(attempt int) time.Duration {
	d := c.InitialDelay
	for i := 1; i < attempt; i++ {
		next := time.Duration(float64(d) * c.Multiplier)
		if next > c.MaxDelay || next < d {
			return c.MaxDelay
		}
		d = next
	}
	return d
}

func (c Config) jitter(d time.Duration) time.Duration {
	if !c.Jitter || d <= 1 {
		return d
	}
	j := d/2 + time.Duration(rand.Int64N(int64(d)))
	if j > c.MaxDelay {
		return c.MaxDelay
	}
	return j
}
