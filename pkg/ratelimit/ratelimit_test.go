package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdaptiveLimiterBounds(t *testing.T) {
	lim := NewAdaptiveLimiter(4, 1, 8, 2, 0.5)
	clock := time.Unix(1000, 0)
	lim.now = func() time.Time { return clock }

	lim.RateLimited()
	assert.Equal(t, 2.0, lim.CurrentLimit())
	lim.RateLimited()
	lim.RateLimited()
	assert.Equal(t, 1.0, lim.CurrentLimit(), "never below min")

	lim.Success()
	assert.Equal(t, 1.0, lim.CurrentLimit(), "no recovery inside the window")

	clock = clock.Add(recoveryWindow + time.Second)
	lim.Success()
	assert.Equal(t, 3.0, lim.CurrentLimit())
	for i := 0; i < 10; i++ {
		lim.Success()
	}
	assert.Equal(t, 8.0, lim.CurrentLimit(), "never above max")
}

func TestNewAdaptiveLimiterClampsInitial(t *testing.T) {
	assert.Equal(t, 3.0, NewAdaptiveLimiter(10, 1, 3, 1, 0.5).CurrentLimit())
	assert.Equal(t, 2.0, NewAdaptiveLimiter(0, 2, 3, 1, 0.5).CurrentLimit())
}

func TestObserve(t *testing.T) {
	lim := NewAdaptiveLimiter(4, 1, 8, 1, 0.5)

	lim.Observe(errors.New("bad request"))
	assert.Equal(t, 4.0, lim.CurrentLimit())

	lim.Observe(fmt.Errorf("create: %w", &StatusError{Code: 429, Err: errors.New("slow down")}))
	assert.Equal(t, 2.0, lim.CurrentLimit())

	lim.Observe(&StatusError{Code: 503, Err: errors.New("unavailable")})
	assert.Equal(t, 1.0, lim.CurrentLimit())
}

func TestStatusOf(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &StatusError{Code: 502, Err: errors.New("gateway")})
	assert.Equal(t, 502, StatusOf(err))
	assert.True(t, IsServerError(err))
	assert.False(t, IsRateLimit(err))
	assert.Equal(t, 0, StatusOf(errors.New("plain")))
}

func TestWaitHonoursContext(t *testing.T) {
	lim := NewAdaptiveLimiter(1, 1, 1, 0, 0.5)
	require.NoError(t, lim.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, lim.Wait(ctx))
}
