package outbox

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoff_GrowsExponentiallyAndCaps(t *testing.T) {
	maxBackoff := 60 * time.Second

	require.Equal(t, time.Duration(0), backoff(0, maxBackoff))
	require.Equal(t, 1*time.Second, backoff(1, maxBackoff))
	require.Equal(t, 2*time.Second, backoff(2, maxBackoff))
	require.Equal(t, 4*time.Second, backoff(3, maxBackoff))
	require.Equal(t, 32*time.Second, backoff(6, maxBackoff))
	require.Equal(t, maxBackoff, backoff(7, maxBackoff))
	require.Equal(t, maxBackoff, backoff(40, maxBackoff))
	require.Equal(t, maxBackoff, backoff(64, maxBackoff))
	require.Equal(t, maxBackoff, backoff(1000, maxBackoff))
}

func TestJitter_Bounds(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	maxJitter := 200 * time.Millisecond

	for i := 0; i < 100; i++ {
		j := jitter(r, maxJitter)
		require.GreaterOrEqual(t, j, time.Duration(0))
		require.LessOrEqual(t, j, maxJitter)
	}

	require.Equal(t, time.Duration(0), jitter(nil, maxJitter))
	require.Equal(t, time.Duration(0), jitter(r, 0))
}
