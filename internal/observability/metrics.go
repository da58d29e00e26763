package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "warming_map"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Cache metrics.
	CacheLookups *prometheus.CounterVec // labels: cache={field,render,point}, outcome={hit,remote_hit,miss,error}

	// Computation metrics.
	ComputeDuration *prometheus.HistogramVec // labels: operation={field,render,point}
	ComputeErrors   *prometheus.CounterVec   // labels: operation, reason={no_data,invalid,internal}

	// Warm-up metrics.
	WarmupRuns     prometheus.Counter
	WarmupDuration prometheus.Histogram

	// Interaction metrics.
	SessionsActive prometheus.Gauge
	ClicksParsed   *prometheus.CounterVec // labels: result={resolved,ignored}
	QuizAnswers    *prometheus.CounterVec // labels: correct={true,false}
}

func newMetrics() *Metrics {
	return &Metrics{
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Memo cache lookups by cache and outcome.",
		}, []string{"cache", "outcome"}),
		ComputeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compute_duration_seconds",
			Help:      "Duration of field, render and point requests including cache hits.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
		ComputeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compute_errors_total",
			Help:      "Failed field, render and point requests by reason.",
		}, []string{"operation", "reason"}),
		WarmupRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warmup_runs_total",
			Help:      "Completed cache warm-up runs.",
		}),
		WarmupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "warmup_duration_seconds",
			Help:      "Duration of a cache warm-up run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions held in memory after the last sweep.",
		}),
		ClicksParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clicks_total",
			Help:      "Click payloads by whether a coordinate was recognised.",
		}, []string{"result"}),
		QuizAnswers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quiz_answers_total",
			Help:      "Submitted quiz answers by correctness.",
		}, []string{"correct"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.CacheLookups,
		m.ComputeDuration,
		m.ComputeErrors,
		m.WarmupRuns,
		m.WarmupDuration,
		m.SessionsActive,
		m.ClicksParsed,
		m.QuizAnswers,
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered nowhere, so tests can build
// as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// ObserveCache is a store.Memo observer feeding CacheLookups.
func (m *Metrics) ObserveCache(cache, outcome string) {
	m.CacheLookups.WithLabelValues(cache, outcome).Inc()
}

// Time starts timing operation; call the returned func when it ends.
func (m *Metrics) Time(operation string) func() {
	start := time.Now()
	return func() {
		m.ComputeDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
