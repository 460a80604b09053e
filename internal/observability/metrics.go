package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flood_alerts"

// Metrics holds the Prometheus collectors for the monitoring and forecasting pipeline.
type Metrics struct {
	ReadingsRecorded    *prometheus.CounterVec // labels: sensor_type
	AlertsRaised        *prometheus.CounterVec // labels: level
	PersistenceFailures prometheus.Counter
	MonitorCycles       prometheus.Counter
	AlertsPublished     prometheus.Counter

	// Forecasting metrics.
	TrainingRuns      prometheus.Counter
	TrainingDuration  prometheus.Histogram
	CandidateFailures *prometheus.CounterVec // labels: model
	Predictions       *prometheus.CounterVec // labels: kind={point,scenario,raster}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	m.register(prometheus.DefaultRegisterer)
	return m
}

// NewMetricsForTesting creates Metrics on a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	m.register(prometheus.NewRegistry())
	return m
}

func newMetrics() *Metrics {
	return &Metrics{
		ReadingsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_recorded_total",
			Help:      "Sensor readings persisted, by sensor type.",
		}, []string{"sensor_type"}),
		AlertsRaised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_raised_total",
			Help:      "Alerts persisted, by level.",
		}, []string{"level"}),
		PersistenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Readings or alerts that could not be written to the store.",
		}),
		MonitorCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_cycles_total",
			Help:      "Completed simulated monitoring cycles.",
		}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_published_total",
			Help:      "Alerts published to the Redis channel.",
		}),
		TrainingRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_runs_total",
			Help:      "Forecast training runs.",
		}),
		TrainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Duration of a full train over every candidate model.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		CandidateFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidate_failures_total",
			Help:      "Candidate models that failed to fit or evaluate.",
		}, []string{"model"}),
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Forecasts served, by kind.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.ReadingsRecorded,
		m.AlertsRaised,
		m.PersistenceFailures,
		m.MonitorCycles,
		m.AlertsPublished,
		m.TrainingRuns,
		m.TrainingDuration,
		m.CandidateFailures,
		m.Predictions,
	)
}
