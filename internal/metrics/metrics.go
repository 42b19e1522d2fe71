// Package metrics exposes the Prometheus instrumentation for the forecast
// pipeline, the sensor cache, the alert fan-out, and the HTTP surface.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"frostwatch/internal/types"
)

// Collector holds every application metric. One Collector is created at
// startup and shared by all components through their narrow recording
// interfaces.
type Collector struct {
	PredictionsTotal *prometheus.CounterVec
	CacheRefreshes   *prometheus.CounterVec
	AlertSendsTotal  *prometheus.CounterVec
	JobRunsTotal     *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewCollector registers the application metrics on reg. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry so
// collectors never collide.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		PredictionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "predictions_total",
				Help:      "Total predictions generated, by frost level",
			},
			[]string{"frost_level"},
		),

		CacheRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sensor_cache_refreshes_total",
				Help:      "Sensor cache refresh attempts, by outcome",
			},
			[]string{"outcome"},
		),

		AlertSendsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alert_sends_total",
				Help:      "Individual alert sends, by outcome",
			},
			[]string{"outcome"},
		),

		JobRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduled_job_runs_total",
				Help:      "Scheduled job firings, by job name and outcome",
			},
			[]string{"job", "outcome"},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests, by route, method and status",
			},
			[]string{"route", "method", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by route",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"route"},
		),
	}
}

// RecordPrediction counts a generated prediction by frost level.
func (c *Collector) RecordPrediction(level types.FrostLevel) {
	c.PredictionsTotal.WithLabelValues(string(level)).Inc()
}

// RecordCacheRefresh counts a sensor cache refresh attempt.
func (c *Collector) RecordCacheRefresh(outcome types.JobOutcome) {
	c.CacheRefreshes.WithLabelValues(string(outcome)).Inc()
}

// RecordAlertSend counts one per-recipient send attempt.
func (c *Collector) RecordAlertSend(outcome types.JobOutcome) {
	c.AlertSendsTotal.WithLabelValues(string(outcome)).Inc()
}

// RecordJobRun counts a scheduled job firing.
func (c *Collector) RecordJobRun(name string, outcome types.JobOutcome) {
	c.JobRunsTotal.WithLabelValues(name, string(outcome)).Inc()
}

// RecordHTTPRequest records one handled HTTP request.
func (c *Collector) RecordHTTPRequest(route, method, status string, duration time.Duration) {
	c.HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	c.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}
