// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aperture"

// Metrics holds all Prometheus metrics for the application. All record
// methods are nil-safe so components built without metrics wired simply
// skip recording.
type Metrics struct {
	// Screening metrics
	CompaniesScreened prometheus.Counter
	ScreenPassed      prometheus.Counter
	ScreenRejections  *prometheus.CounterVec

	// Model metrics
	ModelRuns        prometheus.Counter
	ModelRejections  *prometheus.CounterVec
	SensitivityCells *prometheus.CounterVec

	// Connector metrics
	ConnectorRequests *prometheus.CounterVec
	ConnectorLatency  *prometheus.HistogramVec

	// Cache metrics
	CacheEvents *prometheus.CounterVec

	// Pipeline metrics
	UniverseSize  prometheus.Gauge
	LastRunUnix   prometheus.Gauge
	PhaseDuration *prometheus.HistogramVec
}

// New creates a Metrics instance registered against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CompaniesScreened: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "companies_screened_total",
			Help:      "Total number of companies evaluated by the screener",
		}),
		ScreenPassed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "screen_passed_total",
			Help:      "Total number of companies that passed every criterion",
		}),
		ScreenRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "screen_rejections_total",
			Help:      "Total number of screen rejections by first failing criterion",
		}, []string{"criterion"}),

		ModelRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_runs_total",
			Help:      "Total number of base-case model executions",
		}),
		ModelRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_rejections_total",
			Help:      "Total number of absent model results by reason",
		}, []string{"reason"}),
		SensitivityCells: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensitivity_cells_total",
			Help:      "Total number of sensitivity grid cells computed",
		}, []string{"defined"}),

		ConnectorRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connector_requests_total",
			Help:      "Total number of upstream data requests by source and outcome",
		}, []string{"source", "outcome"}),
		ConnectorLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "connector_request_seconds",
			Help:      "Upstream data request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),

		CacheEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_events_total",
			Help:      "Total number of cache lookups by outcome",
		}, []string{"outcome"}),

		UniverseSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "universe_size",
			Help:      "Number of tickers in the screening universe",
		}),
		LastRunUnix: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_unix",
			Help:      "Unix timestamp of the last completed screening run",
		}),
		PhaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_seconds",
			Help:      "Run phase duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"phase"}),
	}
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns the process-wide Metrics instance registered against the
// default Prometheus registry. Lazy so tests that never touch metrics do
// not register anything.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordScreened records one screener evaluation.
func (m *Metrics) RecordScreened(passed bool, rejectedBy string) {
	if m == nil {
		return
	}
	m.CompaniesScreened.Inc()
	if passed {
		m.ScreenPassed.Inc()
		return
	}
	m.ScreenRejections.WithLabelValues(rejectedBy).Inc()
}

// RecordModelRun records one base-case model execution.
func (m *Metrics) RecordModelRun(ok bool, reason string) {
	if m == nil {
		return
	}
	m.ModelRuns.Inc()
	if !ok {
		m.ModelRejections.WithLabelValues(reason).Inc()
	}
}

// RecordSensitivityCells records grid cell counts for one matrix.
func (m *Metrics) RecordSensitivityCells(defined, undefined int) {
	if m == nil {
		return
	}
	m.SensitivityCells.WithLabelValues("true").Add(float64(defined))
	m.SensitivityCells.WithLabelValues("false").Add(float64(undefined))
}

// RecordConnectorRequest records one upstream request.
func (m *Metrics) RecordConnectorRequest(source, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.ConnectorRequests.WithLabelValues(source, outcome).Inc()
	m.ConnectorLatency.WithLabelValues(source).Observe(seconds)
}

// RecordCacheEvent records one cache lookup outcome.
func (m *Metrics) RecordCacheEvent(outcome string) {
	if m == nil {
		return
	}
	m.CacheEvents.WithLabelValues(outcome).Inc()
}

// SetUniverseSize updates the universe size gauge.
func (m *Metrics) SetUniverseSize(n int) {
	if m == nil {
		return
	}
	m.UniverseSize.Set(float64(n))
}

// SetLastRun updates the last completed run timestamp gauge.
func (m *Metrics) SetLastRun(unixSeconds int64) {
	if m == nil {
		return
	}
	m.LastRunUnix.Set(float64(unixSeconds))
}

// ObservePhase records one run phase duration.
func (m *Metrics) ObservePhase(phase string, seconds float64) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(phase).Observe(seconds)
}
