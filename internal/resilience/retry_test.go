package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintahmichael98-prog/leadgenius-ai/internal/config"
)

// recordSleep captures requested delays without waiting.
func recordSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), DefaultRetryConfig(), func(_ context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_SuccessAfterRetry(t *testing.T) {
	var calls int
	var delays []time.Duration
	cfg := RetryConfig{MaxAttempts: 3, InitialBackoff: time.Second, Sleep: recordSleep(&delays)}

	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("temporary"), 503)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, delays, 2)
}

func TestDoVal_ExhaustsRetries(t *testing.T) {
	var calls int
	var delays []time.Duration
	cfg := RetryConfig{MaxAttempts: 4, InitialBackoff: time.Second, Multiplier: 2, Sleep: recordSleep(&delays)}

	_, err := DoVal(context.Background(), cfg, func(_ context.Context) (int, error) {
		calls++
		return 0, NewTransientError(errors.New("always fails"), 500)
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls)

	var ex *ExhaustedError
	require.True(t, errors.As(err, &ex))
	assert.Equal(t, 4, ex.Attempts)
	assert.True(t, IsTransient(err))

	// Exponential: 1s, 2s, 4s (no jitter configured).
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, delays)
}

func TestDoVal_NonTransientNotRetried(t *testing.T) {
	var calls int
	_, err := DoVal(context.Background(), DefaultRetryConfig(), func(_ context.Context) (string, error) {
		calls++
		return "", errors.New("bad request")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var ex *ExhaustedError
	assert.False(t, errors.As(err, &ex))
}

func TestDoVal_ContextCancelledDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	cfg := RetryConfig{
		MaxAttempts: 5,
		Sleep: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}

	_, err := DoVal(ctx, cfg, func(_ context.Context) (int, error) {
		calls++
		return 0, NewTransientError(errors.New("flaky"), 502)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal_CooldownForRateLimit(t *testing.T) {
	var delays []time.Duration
	cfg := RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		DelayFor:       Cooldown(65*time.Second, 0),
		Sleep:          recordSleep(&delays),
	}

	var calls int
	_, err := DoVal(context.Background(), cfg, func(_ context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, NewRateLimitError(errors.New("429"), 0)
		}
		if calls == 2 {
			return 0, NewTransientError(errors.New("503"), 503)
		}
		return 7, nil
	})
	require.NoError(t, err)
	require.Len(t, delays, 2)
	assert.Equal(t, 65*time.Second, delays[0])
	assert.Equal(t, 200*time.Millisecond, delays[1])
}

func TestCooldown_RetryAfterWins(t *testing.T) {
	d, ok := Cooldown(10*time.Second, 0)(0, NewRateLimitError(errors.New("slow down"), 30*time.Second))
	assert.True(t, ok)
	assert.Equal(t, 30*time.Second, d)

	_, ok = Cooldown(10*time.Second, 0)(0, errors.New("other"))
	assert.False(t, ok)
}

func TestCooldown_JitterBounded(t *testing.T) {
	hook := Cooldown(65*time.Second, 2*time.Second)
	for i := 0; i < 50; i++ {
		d, ok := hook(i, NewRateLimitError(errors.New("quota"), 0))
		require.True(t, ok)
		assert.GreaterOrEqual(t, d, 65*time.Second)
		assert.Less(t, d, 67*time.Second)
	}
}

func TestComputeBackoff_CapsAtMax(t *testing.T) {
	cfg := applyDefaults(RetryConfig{InitialBackoff: time.Second, MaxBackoff: 3 * time.Second, Multiplier: 10})
	assert.Equal(t, 3*time.Second, computeBackoff(5, cfg))
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.RetryConfig{
		MaxAttempts:      4,
		InitialBackoffMs: 1000,
		MaxBackoffMs:     8000,
		Multiplier:       2,
		JitterFraction:   0.1,
		CooldownSecs:     65,
	})
	assert.Equal(t, 4, cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.InitialBackoff)
	assert.Equal(t, 8*time.Second, cfg.MaxBackoff)
	assert.InDelta(t, 0.1, cfg.JitterFraction, 0.0001)
	require.NotNil(t, cfg.DelayFor)

	d, ok := cfg.DelayFor(0, NewRateLimitError(errors.New("429"), 0))
	assert.True(t, ok)
	assert.GreaterOrEqual(t, d, 65*time.Second)
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, SleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, SleepContext(ctx, 0), context.Canceled)
}
