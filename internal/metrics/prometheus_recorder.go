// Package metrics records sync cycle outcomes in Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/forecast-cache/internal/weather"
)

// PrometheusRecorder implements weather.Recorder on its own registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	syncDuration    *prometheus.HistogramVec
	syncTotal       *prometheus.CounterVec
	recordsWritten  *prometheus.CounterVec
	recordsRejected *prometheus.CounterVec
	storedDays      prometheus.Gauge
	lastSuccess     prometheus.Gauge

	notifications    prometheus.Counter
	sideEffectErrors *prometheus.CounterVec
}

var _ weather.Recorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		syncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forecast_sync_duration_seconds",
			Help:    "Duration of successful sync cycles.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		syncTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forecast_sync_total",
			Help: "Sync cycles by source and outcome.",
		}, []string{"source", "outcome"}), // outcome: ok, empty, fetch, parse, commit
		recordsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forecast_records_written_total",
			Help: "Forecast records committed to the store.",
		}, []string{"source"}),
		recordsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forecast_records_rejected_total",
			Help: "Forecast records rejected by store constraints.",
		}, []string{"source"}),
		storedDays: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "forecast_stored_days",
			Help: "Days stored by the last successful sync.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "forecast_last_sync_success_timestamp_seconds",
			Help: "Unix time of the last successful sync.",
		}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forecast_notifications_total",
			Help: "Forecast notifications shown.",
		}),
		sideEffectErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forecast_side_effect_errors_total",
			Help: "Failed notifications and companion pushes.",
		}, []string{"kind"}),
	}

	registry.MustRegister(r.syncDuration)
	registry.MustRegister(r.syncTotal)
	registry.MustRegister(r.recordsWritten)
	registry.MustRegister(r.recordsRejected)
	registry.MustRegister(r.storedDays)
	registry.MustRegister(r.lastSuccess)
	registry.MustRegister(r.notifications)
	registry.MustRegister(r.sideEffectErrors)

	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *PrometheusRecorder) SyncSucceeded(source string, written, rejected int, elapsed time.Duration) {
	r.syncTotal.WithLabelValues(source, "ok").Inc()
	r.syncDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	r.recordsWritten.WithLabelValues(source).Add(float64(written))
	r.recordsRejected.WithLabelValues(source).Add(float64(rejected))
	r.storedDays.Set(float64(written))
	r.lastSuccess.SetToCurrentTime()
}

func (r *PrometheusRecorder) SyncFailed(source, stage string) {
	r.syncTotal.WithLabelValues(source, stage).Inc()
}

func (r *PrometheusRecorder) SyncEmpty(source string) {
	r.syncTotal.WithLabelValues(source, "empty").Inc()
}

func (r *PrometheusRecorder) NotificationShown() {
	r.notifications.Inc()
}

func (r *PrometheusRecorder) SideEffectFailed(kind string) {
	r.sideEffectErrors.WithLabelValues(kind).Inc()
}
