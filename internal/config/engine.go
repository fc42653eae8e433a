// Package config loads the delivery engine configuration from environment
// variables. Process-wide provider credentials live here; per-user channel
// settings (webhook URLs, bot tokens, integration keys) come from the channel
// store.
package config

import (
	"errors"
	"fmt"
	"time"

	pkgconfig "notify-engine/pkg/config"
)

// Channel store backends.
const (
	ChannelSourcePostgres = "postgres"
	ChannelSourceFile     = "file"
)

// EngineConfig holds the configuration of the delivery engine.
type EngineConfig struct {
	Delivery  DeliveryConfig
	HTTP      HTTPConfig
	SMTP      SMTPConfig
	Twilio    TwilioConfig
	Slack     SlackConfig
	PagerDuty PagerDutyConfig
	Webhook   WebhookConfig

	// ChannelSource selects where channels are resolved from:
	// "postgres" (default) or "file".
	ChannelSource string

	// ChannelFile is the YAML channel file used when ChannelSource is "file".
	ChannelFile string

	// MetricsPort serves /metrics. Default: 9090
	MetricsPort int

	// TracingEnabled installs an SDK tracer provider at startup.
	TracingEnabled bool
}

// DeliveryConfig controls dispatch and bulk pacing.
type DeliveryConfig struct {
	// AttemptTimeout bounds a single channel attempt. Default: 30s
	AttemptTimeout time.Duration
	// BatchSize is the number of notifications delivered concurrently in
	// one bulk batch. Default: 10
	BatchSize int
	// BatchDelay is the pause between bulk batches. Default: 100ms
	BatchDelay time.Duration
}

// HTTPConfig configures the shared outbound HTTP client.
type HTTPConfig struct {
	// Timeout bounds a single provider request. Default: 15s
	Timeout time.Duration
	// BlockPrivateNetworks rejects tenant-supplied webhook URLs that point
	// at loopback or private addresses. Default: true
	BlockPrivateNetworks bool
}

// SMTPConfig holds the outbound mail relay settings. An empty host disables email.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// TwilioConfig holds the SMS provider credentials.
type TwilioConfig struct {
	AccountSID        string
	AuthToken         string
	FromNumber        string
	BaseURL           string
	RequestsPerSecond float64
	Burst             int
}

// SlackConfig holds Slack Web API settings.
type SlackConfig struct {
	APIURL            string
	RequestsPerSecond float64
	Burst             int
}

// PagerDutyConfig holds Events API settings.
type PagerDutyConfig struct {
	EventsURL         string
	MaxAttempts       int
	RequestsPerSecond float64
	Burst             int
}

// WebhookConfig holds generic webhook settings.
type WebhookConfig struct {
	// SignatureHeader carries the HMAC-SHA256 signature. Default: X-Notify-Signature
	SignatureHeader string
}

// LoadEngineConfig loads the configuration from environment variables and
// validates it.
func LoadEngineConfig() (*EngineConfig, error) {
	cfg := &EngineConfig{
		Delivery: DeliveryConfig{
			AttemptTimeout: pkgconfig.GetEnvDuration("NOTIFY_ATTEMPT_TIMEOUT", 30*time.Second),
			BatchSize:      pkgconfig.GetEnvInt("NOTIFY_BATCH_SIZE", 10),
			BatchDelay:     pkgconfig.GetEnvDuration("NOTIFY_BATCH_DELAY", 100*time.Millisecond),
		},
		HTTP: HTTPConfig{
			Timeout:              pkgconfig.GetEnvDuration("NOTIFY_HTTP_TIMEOUT", 15*time.Second),
			BlockPrivateNetworks: pkgconfig.GetEnvBool("NOTIFY_BLOCK_PRIVATE_NETWORKS", true),
		},
		SMTP: SMTPConfig{
			Host:     pkgconfig.GetEnvString("SMTP_HOST", ""),
			Port:     pkgconfig.GetEnvInt("SMTP_PORT", 587),
			Username: pkgconfig.GetEnvString("SMTP_USER", ""),
			Password: pkgconfig.GetEnvString("SMTP_PASSWORD", ""),
			From:     pkgconfig.GetEnvString("SMTP_FROM", ""),
		},
		Twilio: TwilioConfig{
			AccountSID:        pkgconfig.GetEnvString("TWILIO_ACCOUNT_SID", ""),
			AuthToken:         pkgconfig.GetEnvString("TWILIO_AUTH_TOKEN", ""),
			FromNumber:        pkgconfig.GetEnvString("TWILIO_FROM_NUMBER", ""),
			BaseURL:           pkgconfig.GetEnvString("TWILIO_BASE_URL", ""),
			RequestsPerSecond: pkgconfig.GetEnvFloat("TWILIO_REQUESTS_PER_SECOND", 10),
			Burst:             pkgconfig.GetEnvInt("TWILIO_BURST", 10),
		},
		Slack: SlackConfig{
			APIURL:            pkgconfig.GetEnvString("SLACK_API_URL", ""),
			RequestsPerSecond: pkgconfig.GetEnvFloat("SLACK_REQUESTS_PER_SECOND", 1),
			Burst:             pkgconfig.GetEnvInt("SLACK_BURST", 5),
		},
		PagerDuty: PagerDutyConfig{
			EventsURL:         pkgconfig.GetEnvString("PAGERDUTY_EVENTS_URL", ""),
			MaxAttempts:       pkgconfig.GetEnvInt("PAGERDUTY_MAX_ATTEMPTS", 3),
			RequestsPerSecond: pkgconfig.GetEnvFloat("PAGERDUTY_REQUESTS_PER_SECOND", 2),
			Burst:             pkgconfig.GetEnvInt("PAGERDUTY_BURST", 10),
		},
		Webhook: WebhookConfig{
			SignatureHeader: pkgconfig.GetEnvString("WEBHOOK_SIGNATURE_HEADER", "X-Notify-Signature"),
		},
		ChannelSource:  pkgconfig.GetEnvString("NOTIFY_CHANNEL_SOURCE", ChannelSourcePostgres),
		ChannelFile:    pkgconfig.GetEnvString("NOTIFY_CHANNEL_FILE", ""),
		MetricsPort:    pkgconfig.GetEnvInt("METRICS_PORT", 9090),
		TracingEnabled: pkgconfig.GetEnvBool("NOTIFY_TRACING_ENABLED", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks every field and returns all problems joined together.
func (c *EngineConfig) Validate() error {
	var errs []error

	if err := pkgconfig.ValidateDurationRange(c.Delivery.AttemptTimeout, time.Second, 10*time.Minute); err != nil {
		errs = append(errs, fmt.Errorf("NOTIFY_ATTEMPT_TIMEOUT: %w", err))
	}
	if err := pkgconfig.ValidateIntRange(c.Delivery.BatchSize, 1, 1000); err != nil {
		errs = append(errs, fmt.Errorf("NOTIFY_BATCH_SIZE: %w", err))
	}
	if err := pkgconfig.ValidateNonNegativeDuration(c.Delivery.BatchDelay); err != nil {
		errs = append(errs, fmt.Errorf("NOTIFY_BATCH_DELAY: %w", err))
	}
	if err := pkgconfig.ValidatePositiveDuration(c.HTTP.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("NOTIFY_HTTP_TIMEOUT: %w", err))
	}

	if c.SMTP.Host != "" {
		if err := pkgconfig.ValidateIntRange(c.SMTP.Port, 1, 65535); err != nil {
			errs = append(errs, fmt.Errorf("SMTP_PORT: %w", err))
		}
		if c.SMTP.From == "" {
			errs = append(errs, errors.New("SMTP_FROM is required when SMTP_HOST is set"))
		}
	}

	if c.PagerDuty.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("PAGERDUTY_MAX_ATTEMPTS must be at least 1, got %d", c.PagerDuty.MaxAttempts))
	}
	if c.Webhook.SignatureHeader == "" {
		errs = append(errs, errors.New("WEBHOOK_SIGNATURE_HEADER cannot be empty"))
	}

	switch c.ChannelSource {
	case ChannelSourcePostgres:
	case ChannelSourceFile:
		if c.ChannelFile == "" {
			errs = append(errs, errors.New("NOTIFY_CHANNEL_FILE is required when NOTIFY_CHANNEL_SOURCE=file"))
		}
	default:
		errs = append(errs, fmt.Errorf("NOTIFY_CHANNEL_SOURCE must be %q or %q, got %q",
			ChannelSourcePostgres, ChannelSourceFile, c.ChannelSource))
	}

	if err := pkgconfig.ValidateIntRange(c.MetricsPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("METRICS_PORT: %w", err))
	}

	return errors.Join(errs...)
}
