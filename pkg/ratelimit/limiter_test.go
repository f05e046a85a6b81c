package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBucket(capacity int, period time.Duration) (*TokenBucket, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	tb := NewTokenBucket(capacity, period)
	tb.now = clock.Now
	tb.lastRefill = clock.Now()
	return tb, clock
}

func TestTokenBucket(t *testing.T) {
	tb, clock := newTestBucket(5, time.Minute)

	for i := 0; i < 5; i++ {
		if !tb.Allow() {
			t.Errorf("Expected token %d to be available", i+1)
		}
	}

	if tb.Allow() {
		t.Error("Expected no more tokens to be available")
	}
	assert.Equal(t, 0, tb.Remaining())

	clock.Advance(time.Minute)
	if !tb.Allow() {
		t.Error("Expected tokens to be refilled after the period")
	}
	assert.Equal(t, 4, tb.Remaining())

	tb.tokens = 0
	tb.Reset()
	assert.Equal(t, tb.capacity, tb.Remaining())
}

func TestTokenBucketMinimumCapacity(t *testing.T) {
	tb := NewTokenBucket(0, time.Minute)
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestTokenBucketWait(t *testing.T) {
	t.Run("returns immediately with tokens", func(t *testing.T) {
		tb := PerMinute(2)
		require.NoError(t, tb.Wait(context.Background()))
		assert.Equal(t, 1, tb.Remaining())
	})

	t.Run("blocks until refill", func(t *testing.T) {
		tb := NewTokenBucket(1, 50*time.Millisecond)
		require.True(t, tb.Allow())

		start := time.Now()
		require.NoError(t, tb.Wait(context.Background()))
		assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		tb := PerMinute(1)
		require.True(t, tb.Allow())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := tb.Wait(ctx)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

func TestUnlimited(t *testing.T) {
	var l Limiter = Unlimited{}
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow())
	}
	assert.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.Canceled)
}
