package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label value used for channel types without a registered adapter. Channel
// types come from tenant data, so they are never used as label values directly.
const unsupportedLabel = "unsupported"

// Prometheus metrics for delivery engine monitoring
var (
	// deliveryAttemptsTotal tracks channel attempts per channel type and outcome
	deliveryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_delivery_attempts_total",
			Help: "Total number of channel delivery attempts",
		},
		[]string{"channel", "status"}, // status: success|failure
	)

	// deliveryDuration tracks channel attempt duration
	deliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_delivery_duration_seconds",
			Help:    "Channel delivery attempt duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30}, // 50ms to 30s
		},
		[]string{"channel"},
	)

	// unsupportedChannelsTotal tracks attempts for channel types without adapter
	unsupportedChannelsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_unsupported_channel_total",
			Help: "Total number of channels skipped because their type has no adapter",
		},
	)

	// dispatchFailuresTotal tracks whole-notification failures
	dispatchFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_dispatch_failures_total",
			Help: "Total number of notifications whose dispatch failed before any channel attempt",
		},
		[]string{"reason"}, // reason: invalid|resolution|panic|canceled
	)

	// statusWriteFailuresTotal tracks failed delivery-status audit writes
	statusWriteFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_status_write_failures_total",
			Help: "Total number of failed delivery status writes",
		},
		[]string{"reason"}, // reason: table_missing|error
	)

	// bulkBatchesTotal tracks processed bulk batches
	bulkBatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_bulk_batches_total",
			Help: "Total number of bulk delivery batches processed",
		},
	)

	// activeAttempts tracks in-flight channel attempts
	activeAttempts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_active_attempts",
			Help: "Number of in-flight channel delivery attempts",
		},
	)
)

// recordAttempt records the outcome and duration of one channel attempt.
func recordAttempt(channel string, success bool, duration time.Duration) {
	status := "failure"
	if success {
		status = "success"
	}
	deliveryAttemptsTotal.WithLabelValues(channel, status).Inc()
	deliveryDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

func recordUnsupported() {
	unsupportedChannelsTotal.Inc()
}

func recordDispatchFailure(reason string) {
	dispatchFailuresTotal.WithLabelValues(reason).Inc()
}

func recordStatusWriteFailure(reason string) {
	statusWriteFailuresTotal.WithLabelValues(reason).Inc()
}

func recordBulkBatch() {
	bulkBatchesTotal.Inc()
}
