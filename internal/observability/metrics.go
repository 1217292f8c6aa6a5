package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dashboard"

// Metrics bundles the Prometheus instruments the dashboard exposes under
// /metrics. One instance is created at startup and shared by the HTTP
// layer, the exchange client and the quote cache.
type Metrics struct {
	// HTTP surface
	HTTPRequests *prometheus.CounterVec   // by method, route and status
	HTTPDuration *prometheus.HistogramVec // by route

	// Outbound exchange calls
	ExchangeCalls   *prometheus.CounterVec   // by operation and outcome
	ExchangeLatency *prometheus.HistogramVec // by operation

	// Demo fallbacks and cache behaviour
	MockFallbacks *prometheus.CounterVec // by endpoint
	QuoteLookups  *prometheus.CounterVec // by result (hit/miss)
}

// New registers the dashboard instruments with reg and returns them.
// Passing nil registers with the default registerer. Tests pass their own
// prometheus.NewRegistry so repeated construction does not collide.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		ExchangeCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "requests_total",
			Help:      "Outbound exchange API calls, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		ExchangeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "request_duration_seconds",
			Help:      "Outbound exchange API latency, by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		MockFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "mock_fallbacks_total",
			Help:      "Times an endpoint fell back to simulated data after a live failure.",
		}, []string{"endpoint"}),
		QuoteLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quote_cache",
			Name:      "lookups_total",
			Help:      "Quote cache lookups, by result.",
		}, []string{"result"}),
	}
}

// ObserveExchangeCall records one outbound exchange call. Nil receivers are
// tolerated so components can run without metrics wired.
func (m *Metrics) ObserveExchangeCall(operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ExchangeCalls.WithLabelValues(operation, outcome).Inc()
	m.ExchangeLatency.WithLabelValues(operation).Observe(seconds)
}

// CountQuoteLookup records a quote-cache hit or miss.
func (m *Metrics) CountQuoteLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.QuoteLookups.WithLabelValues(result).Inc()
}

// CountMockFallback records a live-to-mock fallback for an endpoint.
func (m *Metrics) CountMockFallback(endpoint string) {
	if m == nil {
		return
	}
	m.MockFallbacks.WithLabelValues(endpoint).Inc()
}
