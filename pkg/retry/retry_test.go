package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesRetryableErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("transient"))
		}
		return nil
	}, WithMaxAttempts(5), WithInitialDelay(time.Millisecond))

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsAtAttemptCeiling(t *testing.T) {
	boom := errors.New("still down")
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Retryable(boom)
	}, WithMaxAttempts(3), WithInitialDelay(time.Millisecond))

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentErrorNotRetried(t *testing.T) {
	boom := errors.New("bad request")
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(boom)
	}, WithMaxAttempts(5), WithInitialDelay(time.Millisecond))

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestDo_NonRetryableErrorReturnedImmediately(t *testing.T) {
	boom := errors.New("plain error")
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return boom
	}, WithMaxAttempts(5), WithInitialDelay(time.Millisecond))

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancellationStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return Retryable(errors.New("transient"))
	}, WithMaxAttempts(5), WithInitialDelay(50*time.Millisecond))

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestCalculateDelay_ExponentialGrowthWithCap(t *testing.T) {
	r := New(
		WithInitialDelay(100*time.Millisecond),
		WithMultiplier(2.0),
		WithMaxDelay(300*time.Millisecond),
		WithJitter(0),
	)

	assert.Equal(t, 100*time.Millisecond, r.calculateDelay(1))
	assert.Equal(t, 200*time.Millisecond, r.calculateDelay(2))
	// Capped: 400ms would exceed MaxDelay.
	assert.Equal(t, 300*time.Millisecond, r.calculateDelay(3))
	assert.Equal(t, 300*time.Millisecond, r.calculateDelay(4))
}

func TestDoWithData(t *testing.T) {
	calls := 0
	got, err := DoWithData(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", Retryable(errors.New("transient"))
		}
		return "ok", nil
	}, WithMaxAttempts(3), WithInitialDelay(time.Millisecond))

	assert.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestDefaultRetriers(t *testing.T) {
	assert.Equal(t, 3, JudgeRetrier().config.MaxAttempts)
	assert.Equal(t, 5, GeneratorRetrier().config.MaxAttempts)
	assert.Equal(t, 3, DatabaseRetrier().config.MaxAttempts)
}
