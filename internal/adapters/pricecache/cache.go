// Package pricecache memoizes 24h ticker quotes for a short TTL so a busy
// dashboard does not burn the exchange request weight on repeated reads of
// the same symbol.
package pricecache

import (
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/algrsh400-debug/ser/internal/observability"
	"github.com/algrsh400-debug/ser/internal/ports"
)

const defaultTTL = 3 * time.Second

// Cache is a TTL quote cache keyed by wire symbol.
type Cache struct {
	c       *ristretto.Cache
	ttl     time.Duration
	metrics *observability.Metrics
}

// New builds the cache. ttl <= 0 falls back to the default 3s; metrics may
// be nil.
func New(ttl time.Duration, metrics *observability.Metrics) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{c: c, ttl: ttl, metrics: metrics}, nil
}

// Get returns the cached quote for a wire symbol, counting the hit or miss.
func (c *Cache) Get(symbol string) (ports.Quote, bool) {
	v, found := c.c.Get(symbol)
	q, ok := v.(ports.Quote)
	hit := found && ok
	c.metrics.CountQuoteLookup(hit)
	if !hit {
		return ports.Quote{}, false
	}
	return q, true
}

// Set stores a quote under its wire symbol until the TTL expires. Writes are
// buffered; call Wait when read-after-write visibility matters.
func (c *Cache) Set(q ports.Quote) {
	c.c.SetWithTTL(q.Symbol, q, 1, c.ttl)
}

// Wait flushes buffered writes.
func (c *Cache) Wait() { c.c.Wait() }
