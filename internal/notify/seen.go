package notify

import (
	"sync"
	"time"
)

type seenEntry struct {
	id string
	ts time.Time
}

// SeenCache remembers which record ids have already produced an alert.
// Entries expire after the ttl or when capacity is exceeded (oldest
// first), so a record that vanishes and reappears much later alerts again.
type SeenCache struct {
	mu       sync.Mutex
	items    map[string]time.Time
	order    []seenEntry
	capacity int
	ttl      time.Duration
}

// NewSeenCache creates a cache with the provided capacity and ttl.
func NewSeenCache(capacity int, ttl time.Duration) *SeenCache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SeenCache{
		items:    make(map[string]time.Time, capacity),
		order:    make([]seenEntry, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
	}
}

// IsSeen reports whether the id was alerted inside the ttl window. It does
// not record the id; MarkSeen does that after successful delivery.
func (c *SeenCache) IsSeen(id string) bool {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if ts, ok := c.items[id]; ok && now.Sub(ts) <= c.ttl {
		return true
	}
	return false
}

// MarkSeen records that an alert went out for the id.
func (c *SeenCache) MarkSeen(id string) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[id] = now
	c.order = append(c.order, seenEntry{id: id, ts: now})
	c.compact(now)
}

func (c *SeenCache) compact(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.items) > c.capacity || c.order[0].ts.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		if ts, ok := c.items[oldest.id]; ok && ts == oldest.ts {
			delete(c.items, oldest.id)
		}
	}
}
