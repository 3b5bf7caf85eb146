package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service. Methods are nil-safe
// so tests can pass a nil *Metrics without touching the global registry.
type Metrics struct {
	TokensIssued   prometheus.Counter
	ClockEvents    *prometheus.CounterVec
	RateLimited    prometheus.Counter
	SubmitDuration prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		TokensIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "workclock_tokens_issued_total",
			Help: "Total number of clock tokens issued",
		}),
		ClockEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "workclock_clock_events_total",
			Help: "Clock event submissions by type and result",
		}, []string{"type", "result"}),
		RateLimited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "workclock_rate_limited_total",
			Help: "Total number of submissions rejected by the rate limiter",
		}),
		SubmitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "workclock_submit_duration_seconds",
			Help:    "Latency of clock event submissions",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// IncTokensIssued counts one issued token.
func (m *Metrics) IncTokensIssued() {
	if m == nil {
		return
	}
	m.TokensIssued.Inc()
}

// IncRateLimited counts one throttled submission.
func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}

// ObserveSubmit records the outcome of one SubmitClockEvent call.
func (m *Metrics) ObserveSubmit(eventType, result string, seconds float64) {
	if m == nil {
		return
	}
	m.ClockEvents.WithLabelValues(eventType, result).Inc()
	m.SubmitDuration.Observe(seconds)
}
