package worker

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWorkerMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWorkerMetrics(reg)

	m.RecordRun(RunSuccess, 0.2)
	m.RecordNotifications(1, 0)
	m.RecordFallback("timezone")
	m.SetFallbackActive(true)
	m.RecordConfigLoad()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"worker_outbox_runs_total",
		"worker_outbox_run_duration_seconds",
		"worker_outbox_notifications_total",
		"worker_outbox_last_success_timestamp",
		"worker_config_fallbacks_total",
		"worker_config_fallback_active",
		"worker_config_load_timestamp",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}

func TestNewWorkerMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewWorkerMetrics(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	NewWorkerMetrics(reg)
}

func TestWorkerMetrics_RecordRun(t *testing.T) {
	m := NewWorkerMetrics(prometheus.NewRegistry())

	m.RecordRun(RunSuccess, 1)
	m.RecordRun(RunSuccess, 2)
	m.RecordRun(RunFailure, 3)

	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues(RunSuccess)); got != 2 {
		t.Errorf("expected 2 successful runs, got %v", got)
	}
	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues(RunFailure)); got != 1 {
		t.Errorf("expected 1 failed run, got %v", got)
	}
	if got := testutil.ToFloat64(m.LastSuccessTimestamp); got <= 0 {
		t.Errorf("expected last success timestamp to be set, got %v", got)
	}
	if got := testutil.CollectAndCount(m.RunDurationSeconds); got != 1 {
		t.Errorf("expected one histogram series, got %d", got)
	}
}

func TestWorkerMetrics_FailureDoesNotStampSuccess(t *testing.T) {
	m := NewWorkerMetrics(prometheus.NewRegistry())

	m.RecordRun(RunFailure, 1)

	if got := testutil.ToFloat64(m.LastSuccessTimestamp); got != 0 {
		t.Errorf("expected no success timestamp, got %v", got)
	}
}

func TestWorkerMetrics_RecordNotifications(t *testing.T) {
	m := NewWorkerMetrics(prometheus.NewRegistry())

	m.RecordNotifications(7, 2)
	m.RecordNotifications(3, 0)

	if got := testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("delivered")); got != 10 {
		t.Errorf("expected 10 delivered, got %v", got)
	}
	if got := testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("failed")); got != 2 {
		t.Errorf("expected 2 failed, got %v", got)
	}
}

func TestWorkerMetrics_SetFallbackActive(t *testing.T) {
	m := NewWorkerMetrics(prometheus.NewRegistry())

	m.SetFallbackActive(true)
	if got := testutil.ToFloat64(m.ConfigFallbackActive); got != 1 {
		t.Errorf("expected 1, got %v", got)
	}
	m.SetFallbackActive(false)
	if got := testutil.ToFloat64(m.ConfigFallbackActive); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
}

func TestWorkerMetrics_ConcurrentAccess(t *testing.T) {
	m := NewWorkerMetrics(prometheus.NewRegistry())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordRun(RunSuccess, 0.1)
			m.RecordNotifications(1, 1)
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues(RunSuccess)); got != 50 {
		t.Errorf("expected 50 runs, got %v", got)
	}
}
