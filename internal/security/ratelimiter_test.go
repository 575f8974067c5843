package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/formboard/internal/cache"
)

func TestRateLimiterAllow(t *testing.T) {
	limiter, err := NewRateLimiter(cache.NewStore(cache.Options{}), 2, time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)

	other, err := limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	limiter.Reset(ctx, "10.0.0.1")
	res, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)
}

func TestNewRateLimiterValidation(t *testing.T) {
	_, err := NewRateLimiter(nil, 1, time.Minute)
	assert.Error(t, err)
	_, err = NewRateLimiter(cache.NewStore(cache.Options{}), 0, time.Minute)
	assert.Error(t, err)
}
