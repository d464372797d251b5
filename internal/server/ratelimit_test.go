package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterPerMinute(t *testing.T) {
	rl := NewRateLimiter(2, 0, 0, 0)

	require.NoError(t, rl.Check("client-a", 0))
	require.NoError(t, rl.Check("client-a", 0))

	err := rl.Check("client-a", 0)
	require.Error(t, err)
	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, "minute", rle.Type)
	assert.Equal(t, 2, rle.Limit)
	assert.Greater(t, rle.RetryAfter, time.Duration(0))
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	rl := NewRateLimiter(1, 0, 0, 0)

	require.NoError(t, rl.Check("client-a", 0))
	require.Error(t, rl.Check("client-a", 0))
	require.NoError(t, rl.Check("client-b", 0))
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, 0, 0, 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, rl.Check("client-a", 1<<20))
	}
}

func TestRateLimiterDataBudget(t *testing.T) {
	rl := NewRateLimiter(0, 0, 0, 100)

	require.NoError(t, rl.Check("client-a", 60))
	err := rl.Check("client-a", 60)
	require.Error(t, err)
	var rle *RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, "data", rle.Type)
}
