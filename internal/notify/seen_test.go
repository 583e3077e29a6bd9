package notify_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/civicwatch/nola-news-watch/internal/notify"
)

func TestSeenCacheMarkAndCheck(t *testing.T) {
	cache := notify.NewSeenCache(10, time.Minute)
	require.False(t, cache.IsSeen("alpha"))
	cache.MarkSeen("alpha")
	require.True(t, cache.IsSeen("alpha"))
}

func TestSeenCacheTTLExpiry(t *testing.T) {
	cache := notify.NewSeenCache(10, 20*time.Millisecond)
	cache.MarkSeen("beta")
	require.True(t, cache.IsSeen("beta"))
	time.Sleep(25 * time.Millisecond)
	require.False(t, cache.IsSeen("beta"))
}

func TestSeenCacheCapacityEvictsOldest(t *testing.T) {
	cache := notify.NewSeenCache(1, time.Minute)
	cache.MarkSeen("first")
	cache.MarkSeen("second")

	require.False(t, cache.IsSeen("first"))
	require.True(t, cache.IsSeen("second"))
}
