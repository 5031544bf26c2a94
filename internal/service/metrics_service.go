package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dtopb "github.com/prometheus/client_model/go"
)

// MetricsService encapsulates Prometheus instrumentation for scheduling
// runs. It keeps its own registry so embedding applications can expose or
// scrape it however they like.
type MetricsService struct {
	registry *prometheus.Registry

	runTotal         *prometheus.CounterVec
	solveDuration    prometheus.Histogram
	modelVariables   prometheus.Gauge
	modelConstraints prometheus.Gauge
	cliqueSize       prometheus.Gauge
}

// NewMetricsService registers the scheduler collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	runTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_runs_total",
		Help: "Total number of scheduling runs by outcome",
	}, []string{"status"})

	solveDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schedule_solve_duration_seconds",
		Help:    "Wall-clock duration of the CP solve",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	modelVariables := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schedule_model_variables",
		Help: "Decision variable count of the last built model",
	})

	modelConstraints := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schedule_model_constraints",
		Help: "Constraint count of the last built model",
	})

	cliqueSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schedule_clique_size",
		Help: "Maximum conflict clique size of the last run",
	})

	registry.MustRegister(runTotal, solveDuration, modelVariables, modelConstraints, cliqueSize)

	return &MetricsService{
		registry:         registry,
		runTotal:         runTotal,
		solveDuration:    solveDuration,
		modelVariables:   modelVariables,
		modelConstraints: modelConstraints,
		cliqueSize:       cliqueSize,
	}
}

// CountRun records one finished run by outcome.
func (m *MetricsService) CountRun(status string) {
	m.runTotal.WithLabelValues(status).Inc()
}

// ObserveSolve records the wall-clock duration of one CP solve.
func (m *MetricsService) ObserveSolve(elapsed time.Duration) {
	m.solveDuration.Observe(elapsed.Seconds())
}

// SetModelSize records the dimensions of the last built model.
func (m *MetricsService) SetModelSize(variables, constraints int) {
	m.modelVariables.Set(float64(variables))
	m.modelConstraints.Set(float64(constraints))
}

// SetCliqueSize records the clique preprocessor outcome.
func (m *MetricsService) SetCliqueSize(size int) {
	m.cliqueSize.Set(float64(size))
}

// Gather snapshots the registry, for callers that log or export metrics.
func (m *MetricsService) Gather() ([]*dtopb.MetricFamily, error) {
	return m.registry.Gather()
}
