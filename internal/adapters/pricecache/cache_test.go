package pricecache

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algrsh400-debug/ser/internal/observability"
	"github.com/algrsh400-debug/ser/internal/ports"
)

func TestCacheRoundTrip(t *testing.T) {
	c, err := New(time.Minute, nil)
	require.NoError(t, err)

	_, ok := c.Get("BTCUSDT")
	assert.False(t, ok)

	c.Set(ports.Quote{Symbol: "BTCUSDT", Price: 64250.50, ChangePercent: 2.35})
	c.Wait()

	q, ok := c.Get("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, 64250.50, q.Price)
	assert.Equal(t, 2.35, q.ChangePercent)

	// Other symbols stay cold.
	_, ok = c.Get("ETHUSDT")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	c, err := New(20*time.Millisecond, nil)
	require.NoError(t, err)

	c.Set(ports.Quote{Symbol: "ETHUSDT", Price: 3150.25})
	c.Wait()

	_, ok := c.Get("ETHUSDT")
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)
	_, ok = c.Get("ETHUSDT")
	assert.False(t, ok, "entries expire after the TTL")
}

func TestCacheCountsLookups(t *testing.T) {
	m := observability.New(prometheus.NewRegistry())
	c, err := New(time.Minute, m)
	require.NoError(t, err)

	c.Set(ports.Quote{Symbol: "SOLUSDT", Price: 144.80})
	c.Wait()
	c.Get("SOLUSDT")
	c.Get("SOLUSDT")
	c.Get("BNBUSDT")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.QuoteLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuoteLookups.WithLabelValues("miss")))
}
