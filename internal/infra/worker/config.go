package worker

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"notify-engine/pkg/config"
)

// WorkerConfig holds the configuration of the outbox worker.
//
// Environment variables:
//   - CRON_SCHEDULE: five-field cron expression (default "* * * * *")
//   - WORKER_TIMEZONE: IANA timezone for the schedule (default "UTC")
//   - WORKER_BATCH_LIMIT: pending notifications drained per tenant per tick, 1-5000 (default 200)
//   - WORKER_TICK_TIMEOUT: upper bound for one tick, 10s-1h (default 5m)
//   - WORKER_HEALTH_PORT: health server port, 1024-65535 (default 9091)
type WorkerConfig struct {
	CronSchedule string
	Timezone     string
	BatchLimit   int
	TickTimeout  time.Duration
	HealthPort   int
}

// DefaultConfig returns the production defaults: drain every minute, in UTC,
// at most 200 notifications per tenant per tick.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule: "* * * * *",
		Timezone:     "UTC",
		BatchLimit:   200,
		TickTimeout:  5 * time.Minute,
		HealthPort:   9091,
	}
}

func validateBatchLimit(v int) error { return config.ValidateIntRange(v, 1, 5000) }

func validateTickTimeout(d time.Duration) error {
	return config.ValidateDurationRange(d, 10*time.Second, time.Hour)
}

func validateHealthPort(v int) error { return config.ValidateIntRange(v, 1024, 65535) }

// Validate checks every field and reports all failures at once.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := validateBatchLimit(c.BatchLimit); err != nil {
		errs = append(errs, fmt.Errorf("batch limit: %w", err))
	}
	if err := validateTickTimeout(c.TickTimeout); err != nil {
		errs = append(errs, fmt.Errorf("tick timeout: %w", err))
	}
	if err := validateHealthPort(c.HealthPort); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads the worker configuration with a fail-open strategy:
// a missing variable keeps the default silently, and an unparsable or invalid
// one keeps the default, logs a warning and is counted in metrics. The
// returned configuration is always valid.
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) *WorkerConfig {
	cfg := DefaultConfig()
	l := &envLoader{logger: logger, metrics: metrics}

	cfg.CronSchedule = loadField(l, "cron_schedule", "CRON_SCHEDULE", cfg.CronSchedule, parseString, config.ValidateCronSchedule)
	cfg.Timezone = loadField(l, "timezone", "WORKER_TIMEZONE", cfg.Timezone, parseString, config.ValidateTimezone)
	cfg.BatchLimit = loadField(l, "batch_limit", "WORKER_BATCH_LIMIT", cfg.BatchLimit, strconv.Atoi, validateBatchLimit)
	cfg.TickTimeout = loadField(l, "tick_timeout", "WORKER_TICK_TIMEOUT", cfg.TickTimeout, time.ParseDuration, validateTickTimeout)
	cfg.HealthPort = loadField(l, "health_port", "WORKER_HEALTH_PORT", cfg.HealthPort, strconv.Atoi, validateHealthPort)

	metrics.SetFallbackActive(l.fallback)
	metrics.RecordConfigLoad()
	return &cfg
}

type envLoader struct {
	logger   *slog.Logger
	metrics  *WorkerMetrics
	fallback bool
}

func parseString(s string) (string, error) { return s, nil }

func loadField[T any](l *envLoader, field, envKey string, def T, parse func(string) (T, error), validate func(T) error) T {
	raw, ok := os.LookupEnv(envKey)
	if !ok || raw == "" {
		return def
	}

	value, err := parse(raw)
	if err == nil {
		err = validate(value)
	}
	if err == nil {
		return value
	}

	l.fallback = true
	l.metrics.RecordFallback(field)
	l.logger.Warn("configuration fallback applied",
		slog.String("field", field),
		slog.String("env_key", envKey),
		slog.String("invalid_value", raw),
		slog.Any("default_value", def),
		slog.String("error", err.Error()))
	return def
}
