package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      2 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	var delays []time.Duration

	err := Do(context.Background(), fastConfig(5), "postgres", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}, func(attempt int, err error, nextDelay time.Duration) {
		delays = append(delays, nextDelay)
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, delays)
}

func TestDo_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), "redis", func(ctx context.Context) error {
		calls++
		return errors.New("timeout")
	}, nil)

	assert.Equal(t, 3, calls)
	assert.ErrorContains(t, err, "redis: max retry attempts (3) exceeded: timeout")
}

func TestDo_PermanentErrorStops(t *testing.T) {
	authErr := errors.New("password authentication failed")
	calls := 0
	err := Do(context.Background(), fastConfig(5), "postgres", func(ctx context.Context) error {
		calls++
		return Permanent(authErr)
	}, nil)

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, authErr)
}

func TestDo_StopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig(100)
	cfg.InitialDelay = time.Hour

	errCh := make(chan error, 1)
	go func() {
		errCh <- Do(ctx, cfg, "typesense", func(ctx context.Context) error {
			return errors.New("unhealthy")
		}, func(int, error, time.Duration) { cancel() })
	}()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
		assert.ErrorContains(t, err, "unhealthy")
	case <-time.After(time.Second):
		t.Fatal("retry did not stop after cancellation")
	}
}

func TestPermanent_Nil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}
