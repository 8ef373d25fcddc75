package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/docverify/internal/core/domain"
)

type WorkerMetrics struct {
	registry *prometheus.Registry
	*BreakerMetrics
	service string

	processTotal     *prometheus.CounterVec
	processDuration  *prometheus.HistogramVec
	processInFlight  prometheus.Gauge
	queueLag         *prometheus.HistogramVec
	riskScore        *prometheus.HistogramVec
	documentFailures *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "cycles_total",
			Help:      "Total finished verification cycles by terminal state.",
		},
		[]string{"service", "state"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "cycle_duration_seconds",
			Help:      "Verification cycle duration in seconds by terminal state.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "state"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "cycles_in_flight",
			Help:      "Number of in-flight verification requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between submission and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	riskScore := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "verification",
			Name:      "risk_score",
			Help:      "Distribution of composite risk scores.",
			Buckets:   []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
		[]string{"service"},
	)
	documentFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verification",
			Name:      "document_failures_total",
			Help:      "Total unreadable or missing documents by type and failure kind.",
		},
		[]string{"service", "document_type", "kind"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, queueLag, riskScore, documentFailures)

	return &WorkerMetrics{
		registry:         registry,
		BreakerMetrics:   NewBreakerMetrics(service, registry),
		service:          service,
		processTotal:     processTotal,
		processDuration:  processDuration,
		processInFlight:  processInFlight,
		queueLag:         queueLag,
		riskScore:        riskScore,
		documentFailures: documentFailures,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartRequest() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishRequest() {
	m.processInFlight.Dec()
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(m.service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) ObserveCycle(state domain.CycleState, riskScore float64, duration time.Duration) {
	m.processTotal.WithLabelValues(m.service, string(state)).Inc()
	m.processDuration.WithLabelValues(m.service, string(state)).Observe(duration.Seconds())
	m.riskScore.WithLabelValues(m.service).Observe(riskScore)
}

func (m *WorkerMetrics) ObserveDocumentFailure(docType domain.DocumentType, kind domain.FailureKind) {
	m.documentFailures.WithLabelValues(m.service, string(docType), string(kind)).Inc()
}
