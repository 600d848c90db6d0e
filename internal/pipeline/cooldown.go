package pipeline

import (
	"sync"
	"time"

	"trustpay/internal/model"
)

// cooldown suppresses repeat alert records for the same account and signal
// kind inside the cooldown interval. The assessment itself is unaffected;
// only the review queue is throttled.
type cooldown struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func newCooldown() *cooldown {
	return &cooldown{last: make(map[string]time.Time)}
}

func (c *cooldown) allow(account string, kind model.SignalKind, interval time.Duration) bool {
	if interval <= 0 {
		return true
	}
	key := account + "|" + string(kind)
	now := time.Now().UTC()
	c.mu.Lock()
	defer c.mu.Unlock()
	if ts, ok := c.last[key]; ok {
		if now.Sub(ts) < interval {
			return false
		}
	}
	c.last[key] = now
	return true
}

func (c *cooldown) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = make(map[string]time.Time)
}
