package securities

import (
	"sync"
	"time"

	"quantEngine/internal/domain"
)

// Cache keeps the latest sample and the sample history of one security.
// Appends and reads are serialized so a reader never sees a partial write.
type Cache struct {
	mu           sync.RWMutex
	last         *domain.MarketData
	history      []domain.MarketData
	historyLimit int
}

// NewCache creates a cache retaining at most historyLimit samples; zero keeps all.
func NewCache(historyLimit int) *Cache {
	return &Cache{historyLimit: historyLimit}
}

// Add records a sample as the latest observation.
func (c *Cache) Add(data domain.MarketData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sample := data
	c.last = &sample
	c.history = append(c.history, data)
	if c.historyLimit > 0 && len(c.history) > c.historyLimit {
		c.history = append(c.history[:0:0], c.history[len(c.history)-c.historyLimit:]...)
	}
}

// Last returns a copy of the latest sample.
func (c *Cache) Last() (domain.MarketData, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return domain.MarketData{}, false
	}
	return *c.last, true
}

// History returns a copy of the retained samples at or before until, oldest first.
// A zero until returns everything.
func (c *Cache) History(until time.Time) []domain.MarketData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.MarketData, 0, len(c.history))
	for _, d := range c.history {
		if !until.IsZero() && d.Time.After(until) {
			break
		}
		out = append(out, d)
	}
	return out
}

// Len returns the number of retained samples.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.history)
}
