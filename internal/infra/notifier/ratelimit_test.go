package notifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	t.Run("allows burst immediately", func(t *testing.T) {
		limiter := NewRateLimiter(2.0, 5)
		start := time.Now()
		for i := 0; i < 5; i++ {
			assert.NoError(t, limiter.Allow(context.Background()))
		}
		assert.Less(t, time.Since(start), 100*time.Millisecond)
	})

	t.Run("blocks beyond the rate until the context expires", func(t *testing.T) {
		limiter := NewRateLimiter(1.0, 1)
		assert.NoError(t, limiter.Allow(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		assert.Error(t, limiter.Allow(ctx))
	})

	t.Run("non-positive rate disables limiting", func(t *testing.T) {
		limiter := NewRateLimiter(0, 0)
		for i := 0; i < 100; i++ {
			assert.NoError(t, limiter.Allow(context.Background()))
		}
	})

	t.Run("nil limiter never blocks", func(t *testing.T) {
		var limiter *RateLimiter
		assert.NoError(t, limiter.Allow(context.Background()))
	})
}
