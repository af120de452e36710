package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastPolicy keeps test runs quick without changing retry semantics.
func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

type tempError struct {
	temp  bool
	after time.Duration
}

func (e *tempError) Error() string                 { return fmt.Sprintf("temp=%v", e.temp) }
func (e *tempError) Temporary() bool               { return e.temp }
func (e *tempError) RetryAfterHint() time.Duration { return e.after }

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"wrapped cancellation", fmt.Errorf("op: %w", context.Canceled), false},
		{"network timeout", timeoutError{}, true},
		{"temporary server error", &tempError{temp: true}, true},
		{"permanent server error", &tempError{temp: false}, false},
		{"plain error", errors.New("bad request"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Retryable(tt.err))
		})
	}
}

func TestDo_RetriesUntilExhausted(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(4), "op", func(ctx context.Context) error {
		calls++
		return &tempError{temp: true}
	})

	assert.Equal(t, 4, calls)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 4, exhausted.Attempts)
	assert.ErrorAs(t, err, new(*tempError))
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	wantErr := errors.New("validation failed")
	err := Do(context.Background(), fastPolicy(4), "op", func(ctx context.Context) error {
		calls++
		return wantErr
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, wantErr)
}

func TestDo_SucceedsAfterRetry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(4), "op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &tempError{temp: true}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_CancelledContextStopsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Do(ctx, Policy{MaxAttempts: 4, BaseDelay: time.Minute, MaxDelay: time.Minute}, "op",
		func(ctx context.Context) error {
			calls++
			cancel()
			return &tempError{temp: true}
		})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoValue(t *testing.T) {
	calls := 0
	out, err := DoValue(context.Background(), fastPolicy(3), "op", func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, &tempError{temp: true}
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, out)
	assert.Equal(t, 2, calls)
}

func TestPolicy_Delay(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: 30 * time.Second}

	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	assert.Equal(t, 8*time.Second, p.Delay(4))

	// The cap holds however deep the attempt count goes.
	assert.Equal(t, 30*time.Second, p.Delay(6))
	assert.Equal(t, 30*time.Second, p.Delay(20))
}

func TestPolicy_DelayNeverDecreases(t *testing.T) {
	p := DefaultPolicy()
	prev := time.Duration(0)
	for attempt := 1; attempt <= 10; attempt++ {
		d := p.Delay(attempt)
		assert.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		assert.LessOrEqual(t, d, p.MaxDelay)
		prev = d
	}
}

func TestDo_ServerHintBoundsWait(t *testing.T) {
	// The hint replaces the computed delay but never exceeds the cap.
	p := Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 20 * time.Millisecond}

	start := time.Now()
	calls := 0
	err := Do(context.Background(), p, "op", func(ctx context.Context) error {
		calls++
		return &tempError{temp: true, after: time.Hour}
	})
	elapsed := time.Since(start)

	assert.Equal(t, 2, calls)
	assert.ErrorAs(t, err, new(*ExhaustedError))
	assert.Less(t, elapsed, time.Second)
}
