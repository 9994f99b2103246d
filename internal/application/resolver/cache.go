package resolver

import "github.com/polycopy/engine/internal/domain"

// marketCache is a bounded FIFO cache keyed by slug. Only terminal markets
// with an observed winner belong here; eviction costs one refetch, never
// correctness.
type marketCache struct {
	cap     int
	order   []string
	markets map[string]domain.Market
}

func newMarketCache(capacity int) *marketCache {
	return &marketCache{
		cap:     capacity,
		markets: make(map[string]domain.Market, capacity),
	}
}

func (c *marketCache) Get(slug string) (domain.Market, bool) {
	m, ok := c.markets[slug]
	return m, ok
}

func (c *marketCache) Put(slug string, m domain.Market) {
	if _, ok := c.markets[slug]; ok {
		c.markets[slug] = m
		return
	}
	if len(c.order) >= c.cap {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.markets, oldest)
	}
	c.order = append(c.order, slug)
	c.markets[slug] = m
}

func (c *marketCache) Len() int { return len(c.markets) }
