package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// PrometheusMetrics implements Recorder on a dedicated registry.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	duration    *prometheus.GaugeVec
	total       *prometheus.CounterVec
	retries     prometheus.Counter
	failures    *prometheus.CounterVec
	avgDuration prometheus.Summary
	groups      *prometheus.CounterVec
	environment *prometheus.GaugeVec
}

// NewPrometheusMetrics creates the harness metrics together with the
// Go runtime and process collectors.
func NewPrometheusMetrics() *PrometheusMetrics {
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "playwright_test_duration_seconds",
			Help: "Duration of Playwright tests in seconds",
		}, []string{"test"}),
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "playwright_test_total",
			Help: "Total number of tests by status",
		}, []string{"status"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playwright_test_retry_total",
			Help: "Total number of test retries",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "playwright_test_failures_total",
			Help: "Total number of test failures by error type",
		}, []string{"error"}),
		avgDuration: prometheus.NewSummary(prometheus.SummaryOpts{
			Name:       "playwright_test_avg_duration_seconds",
			Help:       "Summary of test durations",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}),
		groups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "playwright_test_group_total",
			Help: "Total number of tests by group",
		}, []string{"group"}),
		environment: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "playwright_test_environment",
			Help: "Environment where tests are executed",
		}, []string{"env"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.duration, m.total, m.retries, m.failures,
		m.avgDuration, m.groups, m.environment,
	)
	return m
}

// Registry returns the registry the metrics live on.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *PrometheusMetrics) ObserveTest(obs Observation) {
	seconds := obs.Duration.Seconds()
	m.duration.WithLabelValues(obs.Test).Set(seconds)
	m.avgDuration.Observe(seconds)
	m.total.WithLabelValues(obs.Status).Inc()
	if obs.Group != "" {
		m.groups.WithLabelValues(obs.Group).Inc()
	}
	// Every observation past the first attempt is one retry.
	if obs.Retries > 0 {
		m.retries.Inc()
	}
	if obs.Status != "passed" {
		m.failures.WithLabelValues(ErrorCategory(obs.ErrorMessage)).Inc()
	}
}

func (m *PrometheusMetrics) SetEnvironment(env string) {
	m.environment.Reset()
	m.environment.WithLabelValues(env).Set(1)
}
