package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleeper struct {
	waits []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func TestRunner_SucceedsAfterFailures(t *testing.T) {
	rec := &recordingSleeper{}
	runner := Runner{Policy: DefaultPolicy(), Sleep: rec.sleep}

	calls := 0
	attempts, err := runner.Do(context.Background(), func(_ context.Context, attempt int) error {
		calls++
		if attempt < 5 {
			return errors.New("not yet")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 5, attempts)
	assert.Equal(t, 5, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}, rec.waits)
}

func TestRunner_ExhaustsWithoutTrailingDelay(t *testing.T) {
	rec := &recordingSleeper{}
	var retried []int
	runner := Runner{
		Policy:  DefaultPolicy(),
		Sleep:   rec.sleep,
		OnRetry: func(attempt int, _ time.Duration, _ error) { retried = append(retried, attempt) },
	}

	boom := errors.New("boom")
	attempts, err := runner.Do(context.Background(), func(context.Context, int) error { return boom })

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 5, attempts)
	assert.Len(t, rec.waits, 4)
	assert.Equal(t, []int{1, 2, 3, 4}, retried)
}

func TestRunner_StopsOnCancelledWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := Runner{Policy: DefaultPolicy()}
	attempts, err := runner.Do(ctx, func(context.Context, int) error { return errors.New("fail") })

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}
