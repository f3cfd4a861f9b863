package tendercrawler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedTimer fires immediately and keeps every requested wait.
type recordedTimer struct {
	waits []time.Duration
	c     chan time.Time
}

func (r *recordedTimer) Start(d time.Duration) {
	r.waits = append(r.waits, d)
	if r.c == nil {
		r.c = make(chan time.Time, 1)
	}
	r.c <- time.Now()
}

func (r *recordedTimer) Stop() {}

func (r *recordedTimer) C() <-chan time.Time {
	return r.c
}

func newTestPolicy(rec *recordedTimer) RetryPolicy {
	p := DefaultRetryPolicy()
	p.timer = rec
	return p
}

func TestRetryValue_SucceedsOnThirdAttempt(t *testing.T) {
	rec := &recordedTimer{}
	attempts := 0

	v, err := RetryValue(context.Background(), newTestPolicy(rec), func(context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", ErrTransientUI
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, rec.waits)
}

func TestRetryPolicy_ExhaustsAfterMaxAttempts(t *testing.T) {
	rec := &recordedTimer{}
	attempts := 0
	boom := errors.New("search input not found")

	err := newTestPolicy(rec).Do(context.Background(), func(context.Context) error {
		attempts++
		return boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, attempts)
	assert.Len(t, rec.waits, 2)
}

func TestRetryPolicy_OnRetryCalledBeforeEachWait(t *testing.T) {
	rec := &recordedTimer{}
	p := newTestPolicy(rec)
	var seen []int
	p.OnRetry = func(attempt int, wait time.Duration, err error) {
		seen = append(seen, attempt)
		assert.Len(t, rec.waits, attempt-1)
	}

	_ = p.Do(context.Background(), func(context.Context) error { return ErrTransientUI })

	assert.Equal(t, []int{1, 2}, seen)
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := DefaultRetryPolicy()
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second},
		{10, 10 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Backoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestRetryPolicy_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := DefaultRetryPolicy()
	p.BaseDelay = time.Hour
	attempts := 0

	err := p.Do(ctx, func(context.Context) error {
		attempts++
		cancel()
		return ErrTransientUI
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestRetryPolicy_BaseDelayAboveCapIsCapped(t *testing.T) {
	rec := &recordedTimer{}
	p := newTestPolicy(rec)
	p.BaseDelay = time.Minute

	_ = p.Do(context.Background(), func(context.Context) error { return ErrTransientUI })

	assert.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second}, rec.waits)
}
