package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ZeroRateIsUnlimited(t *testing.T) {
	limiter := New(0, 0)
	assert.True(t, limiter.Unlimited())

	for i := 0; i < 10000; i++ {
		require.True(t, limiter.Allow(), "request %d should be allowed", i)
	}
	assert.Zero(t, limiter.Retry())
}

func TestAllow_BurstThenRefill(t *testing.T) {
	limiter := New(10, 10)

	for i := 0; i < 10; i++ {
		require.True(t, limiter.Allow(), "request %d should be allowed (within burst)", i)
	}
	assert.False(t, limiter.Allow(), "request should be limited after burst exhausted")

	time.Sleep(110 * time.Millisecond)
	assert.True(t, limiter.Allow(), "token should be replenished")
}

func TestAllowN_Batch(t *testing.T) {
	limiter := New(5, 5)

	assert.False(t, limiter.AllowN(6), "batch larger than the bucket must be rejected")
	assert.True(t, limiter.AllowN(5))
	assert.False(t, limiter.AllowN(1))
}

func TestRetry_ReportsDelayWhenEmpty(t *testing.T) {
	limiter := New(10, 1)
	require.True(t, limiter.Allow())

	delay := limiter.Retry()
	assert.Greater(t, delay, time.Duration(0))
	assert.LessOrEqual(t, delay, 100*time.Millisecond)
}

func TestWait_ContextCancelled(t *testing.T) {
	limiter := New(1, 1)
	require.True(t, limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.Error(t, limiter.Wait(ctx))
}
