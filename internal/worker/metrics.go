// Package worker runs the relay pipeline once per hour and exposes health
// and metrics endpoints for the long-running deployment mode.
package worker

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks relay invocation outcomes for the /metrics endpoint.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal      *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	runDuration    prometheus.Histogram
	lastRunTime    prometheus.Gauge
	lastUploadTime prometheus.Gauge
}

// NewMetrics creates and registers the worker metric set.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airbridge_runs_total",
			Help: "Relay invocations by terminal outcome.",
		}, []string{"outcome"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airbridge_errors_total",
			Help: "Failed relay invocations by error class.",
		}, []string{"class"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "airbridge_run_duration_seconds",
			Help:    "Duration of one relay invocation.",
			Buckets: prometheus.DefBuckets,
		}),
		lastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "airbridge_last_run_timestamp_seconds",
			Help: "Unix time of the last completed invocation.",
		}),
		lastUploadTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "airbridge_last_upload_timestamp_seconds",
			Help: "Unix time of the last successful upload or skip.",
		}),
	}

	registry.MustRegister(
		m.runsTotal,
		m.errorsTotal,
		m.runDuration,
		m.lastRunTime,
		m.lastUploadTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRun records one completed invocation.
func (m *Metrics) ObserveRun(outcome string, errorClass string, duration time.Duration) {
	m.runsTotal.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(duration.Seconds())
	m.lastRunTime.SetToCurrentTime()

	if errorClass != "" {
		m.errorsTotal.WithLabelValues(errorClass).Inc()
		return
	}
	m.lastUploadTime.SetToCurrentTime()
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RunsTotal exposes the run counter, mainly for tests.
func (m *Metrics) RunsTotal() *prometheus.CounterVec {
	return m.runsTotal
}

// ErrorsTotal exposes the error counter, mainly for tests.
func (m *Metrics) ErrorsTotal() *prometheus.CounterVec {
	return m.errorsTotal
}
