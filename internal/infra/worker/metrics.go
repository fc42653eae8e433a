package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job run outcomes.
const (
	RunSuccess = "success"
	RunFailure = "failure"
)

// WorkerMetrics holds the outbox worker metrics:
//   - worker_outbox_runs_total{status}
//   - worker_outbox_run_duration_seconds
//   - worker_outbox_notifications_total{outcome}
//   - worker_outbox_last_success_timestamp
//   - worker_config_fallbacks_total{field}
//   - worker_config_fallback_active
//   - worker_config_load_timestamp
type WorkerMetrics struct {
	RunsTotal            *prometheus.CounterVec
	RunDurationSeconds   prometheus.Histogram
	NotificationsTotal   *prometheus.CounterVec
	LastSuccessTimestamp prometheus.Gauge
	ConfigFallbacksTotal *prometheus.CounterVec
	ConfigFallbackActive prometheus.Gauge
	ConfigLoadTimestamp  prometheus.Gauge
}

// NewWorkerMetrics creates the worker metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh
// prometheus.NewRegistry() in tests.
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	factory := promauto.With(reg)
	return &WorkerMetrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_outbox_runs_total",
			Help: "Total number of outbox drain runs by status (success/failure)",
		}, []string{"status"}),

		RunDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_outbox_run_duration_seconds",
			Help:    "Duration of outbox drain runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 30, 60, 300},
		}),

		NotificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_outbox_notifications_total",
			Help: "Notifications drained from the outbox by outcome (delivered/failed)",
		}, []string{"outcome"}),

		LastSuccessTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "worker_outbox_last_success_timestamp",
			Help: "Unix timestamp of the last successful outbox drain",
		}),

		ConfigFallbacksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_config_fallbacks_total",
			Help: "Configuration values replaced by their default, by field",
		}, []string{"field"}),

		ConfigFallbackActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "worker_config_fallback_active",
			Help: "1 if any configuration fallback is active, 0 otherwise",
		}),

		ConfigLoadTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "worker_config_load_timestamp",
			Help: "Unix timestamp of the last configuration load",
		}),
	}
}

// RecordRun records the outcome and duration of one drain run.
func (m *WorkerMetrics) RecordRun(status string, seconds float64) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDurationSeconds.Observe(seconds)
	if status == RunSuccess {
		m.LastSuccessTimestamp.SetToCurrentTime()
	}
}

// RecordNotifications adds drained notifications to the outcome counters.
func (m *WorkerMetrics) RecordNotifications(delivered, failed int) {
	m.NotificationsTotal.WithLabelValues("delivered").Add(float64(delivered))
	m.NotificationsTotal.WithLabelValues("failed").Add(float64(failed))
}

// RecordFallback counts a configuration value replaced by its default.
func (m *WorkerMetrics) RecordFallback(field string) {
	m.ConfigFallbacksTotal.WithLabelValues(field).Inc()
}

// SetFallbackActive reports whether the running configuration uses any fallback.
func (m *WorkerMetrics) SetFallbackActive(active bool) {
	if active {
		m.ConfigFallbackActive.Set(1)
		return
	}
	m.ConfigFallbackActive.Set(0)
}

// RecordConfigLoad stamps the configuration load time.
func (m *WorkerMetrics) RecordConfigLoad() {
	m.ConfigLoadTimestamp.SetToCurrentTime()
}
