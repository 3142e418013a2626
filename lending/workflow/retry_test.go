package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bookshare/lending/lending"
	"github.com/bookshare/lending/testutil/helper"
)

func Test_RetryWithExponentialBackoff_Success_NoRetries(t *testing.T) {
	ctx := context.Background()
	callCount := 0

	fn := func(_ context.Context) error {
		callCount++
		return nil // Success on the first attempt
	}

	err := RetryWithExponentialBackoff(ctx, fn)

	assert.NoError(t, err)
	assert.Equal(t, 1, callCount)
}

func Test_RetryWithExponentialBackoff_RetryOnConcurrencyConflict(t *testing.T) {
	ctx := context.Background()
	callCount := 0

	fn := func(_ context.Context) error {
		callCount++
		if callCount < 3 {
			return lending.ErrConcurrencyConflict // Fail twice
		}
		return nil // Success on the third attempt
	}

	err := RetryWithExponentialBackoff(ctx, fn, WithBaseDelay(time.Millisecond))

	assert.NoError(t, err)
	assert.Equal(t, 3, callCount)
}

func Test_RetryWithExponentialBackoff_GivesUpWithConflict(t *testing.T) {
	ctx := context.Background()
	callCount := 0

	fn := func(_ context.Context) error {
		callCount++
		return lending.ErrConcurrencyConflict
	}

	err := RetryWithExponentialBackoff(ctx, fn, WithMaxAttempts(3), WithBaseDelay(time.Millisecond))

	assert.Equal(t, 3, callCount)
	assert.ErrorIs(t, err, lending.ErrConflict)
	assert.ErrorIs(t, err, lending.ErrConcurrencyConflict)
	assert.Equal(t, lending.OutcomeConflict, lending.OutcomeOf(err))
}

func Test_RetryWithExponentialBackoff_DefaultsToFourAttempts(t *testing.T) {
	ctx := context.Background()
	callCount := 0

	fn := func(_ context.Context) error {
		callCount++
		return lending.ErrConcurrencyConflict
	}

	_ = RetryWithExponentialBackoff(ctx, fn, WithBaseDelay(0))

	assert.Equal(t, 4, callCount)
}

func Test_RetryWithExponentialBackoff_NonRetryableErrorsFailFast(t *testing.T) {
	testCases := []struct {
		name string
		err  error
	}{
		{name: "business conflict", err: lending.ErrConflict},
		{name: "not found", err: lending.ErrNotFound},
		{name: "store failure", err: errors.Join(lending.ErrStoreFailure, errors.New("connection reset"))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			callCount := 0

			fn := func(_ context.Context) error {
				callCount++
				return tc.err
			}

			err := RetryWithExponentialBackoff(context.Background(), fn)

			assert.Equal(t, 1, callCount)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func Test_RetryWithExponentialBackoff_StopsWhenContextIsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	callCount := 0

	fn := func(_ context.Context) error {
		callCount++
		cancel()
		return lending.ErrConcurrencyConflict
	}

	err := RetryWithExponentialBackoff(ctx, fn, WithBaseDelay(time.Second))

	assert.Equal(t, 1, callCount)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, lending.ErrStoreFailure)
}

func Test_RetryWithExponentialBackoff_RecordsMetrics(t *testing.T) {
	ctx := context.Background()
	metrics := helper.NewMetricsCollectorSpy()

	fn := func(_ context.Context) error {
		return lending.ErrConcurrencyConflict
	}

	_ = RetryWithExponentialBackoff(ctx, fn,
		WithMaxAttempts(3),
		WithBaseDelay(time.Millisecond),
		WithJitterFactor(0.1),
		WithRetryMetrics(metrics, CommandRequestBook),
	)

	labels := map[string]string{LogAttrCommandType: CommandRequestBook}
	assert.Equal(t, 2, metrics.CounterCount(MetricRetries, labels))
	assert.Equal(t, 2, metrics.DurationCount(MetricRetryDelay, labels))
	assert.Equal(t, 1, metrics.CounterCount(MetricMaxRetriesReached, labels))
}

func Test_RetryWithExponentialBackoff_InvalidOptions(t *testing.T) {
	ctx := context.Background()
	fn := func(_ context.Context) error { return nil }

	// Test invalid max attempts
	err := RetryWithExponentialBackoff(ctx, fn, WithMaxAttempts(0))
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)

	// Test negative base delay
	err = RetryWithExponentialBackoff(ctx, fn, WithBaseDelay(-1*time.Second))
	assert.ErrorIs(t, err, ErrNegativeBaseDelay)

	// Test invalid jitter factor
	err = RetryWithExponentialBackoff(ctx, fn, WithJitterFactor(1.5))
	assert.ErrorIs(t, err, ErrInvalidJitterFactor)

	// Test metrics without collector or command type
	err = RetryWithExponentialBackoff(ctx, fn, WithRetryMetrics(nil, CommandRequestBook))
	assert.ErrorIs(t, err, ErrNilMetricsCollector)

	err = RetryWithExponentialBackoff(ctx, fn, WithRetryMetrics(helper.NewMetricsCollectorSpy(), ""))
	assert.ErrorIs(t, err, ErrEmptyCommandType)
}
