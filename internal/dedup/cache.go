// Package dedup provides the fingerprint-based deduplication cache.
// A discovery is emitted downstream only the first time its fingerprint is
// observed within the TTL window. After TTL expiry the same underlying item
// reappearing is treated as new: unbounded memory growth is traded for
// eventual re-emission of long-lived items.
package dedup

import (
	"sync"
	"time"

	"trend-hunter/internal/domain"
)

// DefaultTTL is the default retention for seen fingerprints.
const DefaultTTL = 24 * time.Hour

// Cache tracks previously-seen discovery fingerprints with a bounded TTL.
// It is owned exclusively by the aggregator; all mutation goes through
// MarkSeen/FilterNew/Sweep.
type Cache struct {
	mu   sync.Mutex
	seen map[string]int64 // fingerprint -> firstSeenAt (Unix ms)
	ttl  time.Duration
	now  func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock sets the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a deduplication cache with the given TTL.
// A non-positive TTL falls back to DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		seen: make(map[string]int64),
		ttl:  ttl,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasSeen reports whether the fingerprint was observed within the TTL window.
func (c *Cache) HasSeen(fingerprint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasSeenLocked(fingerprint, c.now().UnixMilli())
}

// MarkSeen records the fingerprint with the current time as firstSeenAt.
// Re-marking an unexpired fingerprint does not refresh its firstSeenAt.
func (c *Cache) MarkSeen(fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markSeenLocked(fingerprint, c.now().UnixMilli())
}

// FilterNew applies the check-then-mark pair atomically over one batch and
// returns the discoveries whose fingerprints were not seen within the TTL.
// Holding the lock for the whole batch keeps two interleaved batches from
// both emitting the same fingerprint.
func (c *Cache) FilterNew(discoveries []domain.Discovery) []domain.Discovery {
	c.mu.Lock()
	defer c.mu.Unlock()

	nowMs := c.now().UnixMilli()
	fresh := make([]domain.Discovery, 0, len(discoveries))
	for _, d := range discoveries {
		if c.hasSeenLocked(d.Fingerprint, nowMs) {
			continue
		}
		c.markSeenLocked(d.Fingerprint, nowMs)
		fresh = append(fresh, d)
	}
	return fresh
}

// Sweep removes entries older than the TTL and returns the count removed.
// Sweep cadence is time-based and independent of insert volume; the
// aggregator drives it from a ticker.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().UnixMilli() - c.ttl.Milliseconds()
	removed := 0
	for fp, firstSeen := range c.seen {
		if firstSeen <= cutoff {
			delete(c.seen, fp)
			removed++
		}
	}
	return removed
}

// Len returns the current number of tracked fingerprints, including
// entries past the TTL that have not been swept yet.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// hasSeenLocked treats expired entries as unseen so that a stale entry
// between sweeps does not suppress a legitimate re-emission.
func (c *Cache) hasSeenLocked(fingerprint string, nowMs int64) bool {
	firstSeen, exists := c.seen[fingerprint]
	if !exists {
		return false
	}
	return nowMs-firstSeen < c.ttl.Milliseconds()
}

func (c *Cache) markSeenLocked(fingerprint string, nowMs int64) {
	if firstSeen, exists := c.seen[fingerprint]; exists {
		// Expired entry being re-observed: restart the window.
		if nowMs-firstSeen >= c.ttl.Milliseconds() {
			c.seen[fingerprint] = nowMs
		}
		return
	}
	c.seen[fingerprint] = nowMs
}
