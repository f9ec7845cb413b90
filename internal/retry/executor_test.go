package retry

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastBackoff(attempts int) *ExponentialBackoff {
	return NewExponentialBackoff(attempts, WithInitialDelay(time.Millisecond), WithMaxDelay(2*time.Millisecond), WithJitter(0))
}

func TestExecutor_SucceedsFirstTry(t *testing.T) {
	e := NewExecutor(NewStartupClassifier(), fastBackoff(3))
	calls := 0

	err := e.Execute(context.Background(), func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecutor_RetriesUntilReady(t *testing.T) {
	var retries []int
	e := NewExecutor(NewStartupClassifier(), fastBackoff(5)).WithOnRetry(func(attempt int, err error, delay time.Duration) {
		retries = append(retries, attempt)
	})
	calls := 0

	err := e.Execute(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return syscall.ECONNREFUSED
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{0, 1}, retries)
}

func TestExecutor_FatalErrorStopsImmediately(t *testing.T) {
	e := NewExecutor(NewStartupClassifier(), fastBackoff(5))
	fatal := errors.New("password authentication failed")
	calls := 0

	err := e.Execute(context.Background(), func(context.Context) error {
		calls++
		return fatal
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestExecutor_ExhaustsAttempts(t *testing.T) {
	e := NewExecutor(NewStartupClassifier(), fastBackoff(2))
	calls := 0

	err := e.Execute(context.Background(), func(context.Context) error {
		calls++
		return syscall.ECONNREFUSED
	})

	assert.ErrorIs(t, err, syscall.ECONNREFUSED)
	assert.Equal(t, 3, calls, "initial attempt plus two retries")
}

func TestExecutor_ZeroAttemptsMeansNoRetry(t *testing.T) {
	e := NewExecutor(NewStartupClassifier(), fastBackoff(0))
	calls := 0

	_ = e.Execute(context.Background(), func(context.Context) error {
		calls++
		return syscall.ECONNREFUSED
	})

	assert.Equal(t, 1, calls)
}

func TestExecutor_UnlimitedStopsOnContext(t *testing.T) {
	e := NewExecutor(NewStartupClassifier(), fastBackoff(-1))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := e.Execute(ctx, func(context.Context) error {
		return syscall.ECONNREFUSED
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecutor_WithOnRetryDoesNotMutate(t *testing.T) {
	base := NewExecutor(NewStartupClassifier(), fastBackoff(1))
	withCallback := base.WithOnRetry(func(int, error, time.Duration) {})

	assert.Nil(t, base.onRetry)
	assert.NotNil(t, withCallback.onRetry)
}

func TestNewExecutor_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { NewExecutor(nil, fastBackoff(1)) })
	assert.Panics(t, func() { NewExecutor(NewStartupClassifier(), nil) })
}
