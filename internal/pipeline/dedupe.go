package pipeline

import (
	"sync"
	"time"
)

// dedupeCache drops transaction ids already seen inside the dedupe window.
// Kafka and gateway feeds deliver at-least-once, so replays are expected.
type dedupeCache struct {
	mu    sync.Mutex
	items map[string]time.Time
}

func newDedupeCache() *dedupeCache {
	return &dedupeCache{items: make(map[string]time.Time)}
}

func (d *dedupeCache) seen(id string, now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if ts, ok := d.items[id]; ok {
		if now.Sub(ts) <= ttl {
			return true
		}
	}
	d.items[id] = now
	if len(d.items) > 10000 {
		d.compact(now, ttl)
	}
	return false
}

func (d *dedupeCache) clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items = make(map[string]time.Time)
}

func (d *dedupeCache) compact(now time.Time, ttl time.Duration) {
	for k, ts := range d.items {
		if now.Sub(ts) > ttl {
			delete(d.items, k)
		}
	}
}
