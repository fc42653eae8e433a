package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"notify-engine/internal/domain/entity"
	"notify-engine/internal/resilience/circuitbreaker"
	"notify-engine/internal/resilience/retry"
)

// DefaultPagerDutyEventsURL is the PagerDuty Events API v2 enqueue endpoint.
const DefaultPagerDutyEventsURL = "https://events.pagerduty.com/v2/enqueue"

const (
	pagerDutySource = "notify-engine"

	// Events API v2 summary limit
	maxPagerDutySummaryLength = 1024
)

// criticalEventTypes always page with critical severity regardless of the
// channel's defaultSeverity.
var criticalEventTypes = map[string]struct{}{
	"sla_breach":            {},
	"sla_response_breach":   {},
	"sla_resolution_breach": {},
	"incident_major":        {},
	"incident_critical":     {},
}

// pagerDutySeverities are the severities accepted by the Events API.
var pagerDutySeverities = map[string]struct{}{
	"critical": {},
	"error":    {},
	"warning":  {},
	"info":     {},
}

// PagerDutyConfig contains the process-wide settings of the PagerDuty adapter.
type PagerDutyConfig struct {
	// EventsURL overrides the enqueue endpoint (tests, proxies)
	EventsURL string

	// Retry controls transport retries for 429, 5xx and network failures
	Retry retry.Config

	RequestsPerSecond float64
	Burst             int
}

// PagerDutyAdapter triggers PagerDuty incidents through the Events API v2.
//
// Channel config:
//   - integrationKey: Events API v2 routing key (required)
//   - defaultSeverity: critical, error, warning or info (optional, default error)
type PagerDutyAdapter struct {
	config      PagerDutyConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
}

// NewPagerDutyAdapter creates a PagerDutyAdapter sharing httpClient.
// A zero Retry config falls back to retry.PagerDutyConfig.
func NewPagerDutyAdapter(config PagerDutyConfig, httpClient *http.Client) *PagerDutyAdapter {
	if config.EventsURL == "" {
		config.EventsURL = DefaultPagerDutyEventsURL
	}
	if config.Retry.MaxAttempts < 1 {
		config.Retry = retry.PagerDutyConfig()
	}
	cbCfg := circuitbreaker.PagerDutyConfig()
	cbCfg.IsSuccessful = breakerSuccess
	return &PagerDutyAdapter{
		config:      config,
		httpClient:  httpClient,
		rateLimiter: NewRateLimiter(config.RequestsPerSecond, config.Burst),
		breaker:     circuitbreaker.New(cbCfg),
	}
}

// PagerDutyEvent is the Events API v2 request body.
type PagerDutyEvent struct {
	RoutingKey  string           `json:"routing_key"`
	EventAction string           `json:"event_action"`
	DedupKey    string           `json:"dedup_key,omitempty"`
	Payload     PagerDutyPayload `json:"payload"`
}

// PagerDutyPayload describes the alert.
type PagerDutyPayload struct {
	Summary       string         `json:"summary"`
	Severity      string         `json:"severity"`
	Source        string         `json:"source"`
	Component     string         `json:"component,omitempty"`
	Class         string         `json:"class,omitempty"`
	CustomDetails map[string]any `json:"custom_details,omitempty"`
}

type pagerDutyResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	DedupKey string `json:"dedup_key"`
}

// Type returns entity.ChannelPagerDuty.
func (a *PagerDutyAdapter) Type() entity.ChannelType {
	return entity.ChannelPagerDuty
}

// Deliver triggers an incident. Result metadata carries {dedupKey}.
func (a *PagerDutyAdapter) Deliver(ctx context.Context, tenant string, cfg entity.ChannelConfig, n *entity.Notification) entity.DeliveryResult {
	metadata, err := a.send(ctx, tenant, cfg, n)
	return finish(ctx, entity.ChannelPagerDuty, n, metadata, err)
}

func (a *PagerDutyAdapter) send(ctx context.Context, tenant string, cfg entity.ChannelConfig, n *entity.Notification) (map[string]any, error) {
	routingKey := cfg.String("integrationKey")
	if routingKey == "" {
		return nil, entity.NewConfigurationError("integrationKey", "PagerDuty integration key not configured")
	}

	event := PagerDutyEvent{
		RoutingKey:  routingKey,
		EventAction: "trigger",
		DedupKey:    pagerDutyDedupKey(tenant, n),
		Payload:     buildPagerDutyPayload(tenant, cfg, n),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal pagerduty event: %w", err)
	}

	var (
		pdResp  pagerDutyResponse
		lastErr error
	)
	retryErr := retry.WithBackoff(ctx, a.config.Retry, func() error {
		if err := a.rateLimiter.Allow(ctx); err != nil {
			lastErr = &entity.TransportError{Provider: "PagerDuty", Err: fmt.Errorf("rate limiter: %w", err)}
			return lastErr
		}
		lastErr = a.breaker.Run(func() error {
			resp, err := postJSON(ctx, a.httpClient, "PagerDuty", a.config.EventsURL, payload, nil)
			if err != nil {
				return err
			}
			if err := json.Unmarshal(resp.Body, &pdResp); err != nil {
				return &entity.TransportError{Provider: "PagerDuty", Err: fmt.Errorf("decode response: %w", err)}
			}
			return nil
		})
		lastErr = wrapBreakerError("PagerDuty", lastErr)
		return lastErr
	})
	if retryErr != nil {
		// Report the provider's error rather than the retry envelope
		if lastErr != nil && !errors.Is(retryErr, context.Canceled) && !errors.Is(retryErr, context.DeadlineExceeded) {
			return nil, lastErr
		}
		return nil, &entity.TransportError{Provider: "PagerDuty", Err: retryErr}
	}

	return map[string]any{"dedupKey": pdResp.DedupKey}, nil
}

// pagerDutyDedupKey is stable per tenant notification so that retried
// enqueues collapse into one incident. Empty IDs let PagerDuty assign a key.
func pagerDutyDedupKey(tenant string, n *entity.Notification) string {
	if n.ID == "" {
		return ""
	}
	return tenant + ":" + n.ID
}

// pagerDutySeverity returns critical for critical event types, otherwise the
// channel's defaultSeverity when valid, otherwise error.
func pagerDutySeverity(cfg entity.ChannelConfig, eventType string) string {
	if _, ok := criticalEventTypes[eventType]; ok {
		return "critical"
	}
	if severity := cfg.String("defaultSeverity"); severity != "" {
		if _, ok := pagerDutySeverities[severity]; ok {
			return severity
		}
	}
	return "error"
}

func buildPagerDutyPayload(tenant string, cfg entity.ChannelConfig, n *entity.Notification) PagerDutyPayload {
	details := map[string]any{
		"notificationId": n.ID,
		"tenant":         tenant,
		"body":           n.Body,
	}
	if n.EntityID != "" {
		details["entityId"] = n.EntityID
	}
	for k, v := range n.Metadata {
		if _, reserved := details[k]; !reserved {
			details[k] = v
		}
	}

	summary := n.Title
	if summary == "" {
		summary = n.EventType
	}

	return PagerDutyPayload{
		Summary:       truncateText(summary, maxPagerDutySummaryLength, "..."),
		Severity:      pagerDutySeverity(cfg, n.EventType),
		Source:        pagerDutySource,
		Component:     n.EntityType,
		Class:         n.EventType,
		CustomDetails: details,
	}
}
