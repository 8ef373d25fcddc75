package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "docverify"

// BreakerMetrics records retry and circuit breaker activity of outbound calls.
type BreakerMetrics struct {
	service      string
	breakerState *prometheus.GaugeVec
	retriesTotal *prometheus.CounterVec
}

func NewBreakerMetrics(service string, registerer prometheus.Registerer) *BreakerMetrics {
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "breaker_state",
			Help:      "Current circuit breaker state per operation, 1 for the active state.",
		},
		[]string{"service", "operation", "state"},
	)
	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "retries_total",
			Help:      "Total retried outbound calls by operation.",
		},
		[]string{"service", "operation"},
	)
	registerer.MustRegister(breakerState, retriesTotal)

	return &BreakerMetrics{
		service:      service,
		breakerState: breakerState,
		retriesTotal: retriesTotal,
	}
}

var breakerStates = []string{"closed", "half-open", "open"}

func (m *BreakerMetrics) BreakerStateChanged(operation string, state string) {
	for _, s := range breakerStates {
		value := 0.0
		if s == state {
			value = 1
		}
		m.breakerState.WithLabelValues(m.service, operation, s).Set(value)
	}
}

func (m *BreakerMetrics) RetryAttempted(operation string) {
	m.retriesTotal.WithLabelValues(m.service, operation).Inc()
}
