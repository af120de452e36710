// Package retry wraps remote calls with classified retries and exponential
// backoff. Every network-facing operation in the repository is routed
// through Do or DoValue so retry semantics stay uniform.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/rs/zerolog"
)

// Policy bounds one operation's retry behaviour. MaxAttempts counts the
// initial try, so MaxAttempts=1 means no retries.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// JitterFraction widens each delay by a random factor in
	// [1-f, 1+f] so concurrent callers do not retry in lockstep.
	JitterFraction float64
}

// DefaultPolicy mirrors the operational defaults: four tries, 1s base,
// 30s cap, ±25% jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    4,
		BaseDelay:      time.Second,
		MaxDelay:       30 * time.Second,
		JitterFraction: 0.25,
	}
}

// AuthPolicy retries authentication faster and gives up sooner.
func AuthPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		JitterFraction: 0.25,
	}
}

// ExhaustedError is returned once MaxAttempts tries have failed with
// retryable errors. Last holds the final attempt's error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// temporary is implemented by errors that are safe to retry (connection
// resets, 5xx, rate limiting). rest.ServerError implements it.
type temporary interface {
	Temporary() bool
}

// retryHinted is implemented by errors carrying a server-supplied retry
// delay (Retry-After on a 429).
type retryHinted interface {
	RetryAfterHint() time.Duration
}

// Retryable classifies an error. Connection timeouts/resets and anything
// reporting itself temporary are retried; everything else (notably 4xx
// validation and auth failures) propagates immediately.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var tmp temporary
	if errors.As(err, &tmp) {
		return tmp.Temporary()
	}
	// Reset connections surface as plain *net.OpError without Timeout.
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// Delay computes the pre-jitter delay for attempt n (1-based):
// min(MaxDelay, BaseDelay * 2^(n-1)). Exposed for verification; Do applies
// jitter and server hints on top.
func (p Policy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

func (p Policy) jittered(d time.Duration) time.Duration {
	if p.JitterFraction <= 0 {
		return d
	}
	f := 1 + p.JitterFraction*(2*rand.Float64()-1)
	j := time.Duration(float64(d) * f)
	if j < 0 {
		return 0
	}
	return j
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// policy is exhausted. A server retry hint, when present, replaces the
// computed delay for that attempt (still capped by MaxDelay).
func Do(ctx context.Context, p Policy, name string, op func(ctx context.Context) error) error {
	logger := zerolog.Ctx(ctx)

	var last error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		last = op(ctx)
		if last == nil {
			if attempt > 1 {
				logger.Info().Str("op", name).Int("attempt", attempt).Msg("retry succeeded")
			}
			return nil
		}
		if !Retryable(last) {
			return last
		}
		if attempt == p.MaxAttempts {
			break
		}

		delay := p.jittered(p.Delay(attempt))
		var hinted retryHinted
		if errors.As(last, &hinted) {
			if hint := hinted.RetryAfterHint(); hint > 0 {
				delay = hint
				if delay > p.MaxDelay {
					delay = p.MaxDelay
				}
			}
		}

		logger.Warn().
			Str("op", name).
			Int("attempt", attempt).
			Int("max_attempts", p.MaxAttempts).
			Dur("delay", delay).
			Err(last).
			Msg("retryable failure, backing off")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return &ExhaustedError{Attempts: p.MaxAttempts, Last: last}
}

// DoValue is Do for operations returning a value.
func DoValue[T any](ctx context.Context, p Policy, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, name, func(ctx context.Context) error {
		var opErr error
		out, opErr = op(ctx)
		return opErr
	})
	return out, err
}
