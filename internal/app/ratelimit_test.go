package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiter_SlidingWindow(t *testing.T) {
	req := require.New(t)
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(2, time.Second)
	rl.now = func() time.Time { return now }

	req.True(rl.Allow("p1"))
	req.True(rl.Allow("p1"))
	req.False(rl.Allow("p1"))
	// Other participants have their own window
	req.True(rl.Allow("p2"))

	now = now.Add(1100 * time.Millisecond)
	req.True(rl.Allow("p1"))
}

func TestRateLimiter_ZeroLimitAllowsAll(t *testing.T) {
	rl := NewRateLimiter(0, time.Second)
	for i := 0; i < 100; i++ {
		require.True(t, rl.Allow("p1"))
	}
}

func TestRateLimiter_Forget(t *testing.T) {
	req := require.New(t)
	rl := NewRateLimiter(1, time.Hour)
	req.True(rl.Allow("p1"))
	req.False(rl.Allow("p1"))

	rl.Forget("p1")

	req.True(rl.Allow("p1"))
}
