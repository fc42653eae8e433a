package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"notify-engine/internal/domain/entity"
	"notify-engine/internal/resilience/circuitbreaker"
)

// DefaultSlackAPIURL is the Slack Web API chat.postMessage endpoint.
const DefaultSlackAPIURL = "https://slack.com/api/chat.postMessage"

const (
	// Slack Block Kit limits
	maxHeaderTextLength  = 150
	maxSectionTextLength = 3000
	maxFallbackLength    = 150

	slackTruncationSuffix = "..."
)

// SlackConfig contains the process-wide settings of the Slack adapter.
// Bot tokens and channels are per channel configuration.
type SlackConfig struct {
	// APIURL overrides the chat.postMessage endpoint (tests, proxies)
	APIURL string

	// RequestsPerSecond and Burst bound the outbound call rate
	RequestsPerSecond float64
	Burst             int
}

// SlackAdapter posts notifications to a Slack channel through a bot token.
//
// Channel config:
//   - botToken: Slack bot token (required)
//   - defaultChannel: channel used when channelMap has no entry (required unless mapped)
//   - channelMap: event type → channel overrides (optional)
type SlackAdapter struct {
	config      SlackConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
}

// NewSlackAdapter creates a SlackAdapter sharing httpClient.
func NewSlackAdapter(config SlackConfig, httpClient *http.Client) *SlackAdapter {
	if config.APIURL == "" {
		config.APIURL = DefaultSlackAPIURL
	}
	cbCfg := circuitbreaker.SlackAPIConfig()
	cbCfg.IsSuccessful = breakerSuccess
	return &SlackAdapter{
		config:      config,
		httpClient:  httpClient,
		rateLimiter: NewRateLimiter(config.RequestsPerSecond, config.Burst),
		breaker:     circuitbreaker.New(cbCfg),
	}
}

// SlackMessage represents the chat.postMessage request body using Block Kit.
type SlackMessage struct {
	Channel string       `json:"channel"`
	Text    string       `json:"text"`   // Fallback text (required)
	Blocks  []SlackBlock `json:"blocks"` // Rich formatting blocks
}

// SlackBlock represents a Slack Block Kit block.
type SlackBlock struct {
	Type     string            `json:"type"`               // "header", "section", "context"
	Text     *SlackTextObject  `json:"text,omitempty"`     // Text content (header, section)
	Elements []SlackTextObject `json:"elements,omitempty"` // Elements (context)
}

// SlackTextObject represents a text object in Slack Block Kit.
type SlackTextObject struct {
	Type string `json:"type"` // "mrkdwn" or "plain_text"
	Text string `json:"text"`
}

// slackAPIResponse is the chat.postMessage response envelope.
type slackAPIResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Channel string `json:"channel"`
	TS      string `json:"ts"`
}

// Type returns entity.ChannelSlack.
func (a *SlackAdapter) Type() entity.ChannelType {
	return entity.ChannelSlack
}

// Deliver posts the notification. Result metadata carries {channel, ts}.
func (a *SlackAdapter) Deliver(ctx context.Context, tenant string, cfg entity.ChannelConfig, n *entity.Notification) entity.DeliveryResult {
	metadata, err := a.send(ctx, cfg, n)
	return finish(ctx, entity.ChannelSlack, n, metadata, err)
}

func (a *SlackAdapter) send(ctx context.Context, cfg entity.ChannelConfig, n *entity.Notification) (map[string]any, error) {
	token := cfg.String("botToken")
	if token == "" {
		return nil, entity.NewConfigurationError("botToken", "Slack bot token not configured")
	}

	channel := resolveSlackChannel(cfg, n.EventType)
	if channel == "" {
		return nil, entity.NewConfigurationError("defaultChannel", "Slack channel not configured")
	}

	payload, err := json.Marshal(buildSlackMessage(channel, n))
	if err != nil {
		return nil, fmt.Errorf("marshal slack message: %w", err)
	}

	if err := a.rateLimiter.Allow(ctx); err != nil {
		return nil, &entity.TransportError{Provider: "Slack", Err: fmt.Errorf("rate limiter: %w", err)}
	}

	var apiResp slackAPIResponse
	err = a.breaker.Run(func() error {
		headers := http.Header{"Authorization": {"Bearer " + token}}
		resp, err := postJSON(ctx, a.httpClient, "Slack", a.config.APIURL, payload, headers)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(resp.Body, &apiResp); err != nil {
			return &entity.TransportError{Provider: "Slack", Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	})
	if err != nil {
		return nil, wrapBreakerError("Slack", err)
	}

	// chat.postMessage reports application errors with HTTP 200 and ok=false
	if !apiResp.OK {
		return nil, &entity.TransportError{Provider: "Slack", Message: apiResp.Error}
	}

	return map[string]any{"channel": channel, "ts": apiResp.TS}, nil
}

// resolveSlackChannel returns channelMap[eventType] falling back to defaultChannel.
func resolveSlackChannel(cfg entity.ChannelConfig, eventType string) string {
	if mapped := cfg.StringMap("channelMap")[eventType]; mapped != "" {
		return mapped
	}
	return cfg.String("defaultChannel")
}

// buildSlackMessage creates the Block Kit message: a header block with the
// title, a section block with the body and a context block with the event.
func buildSlackMessage(channel string, n *entity.Notification) SlackMessage {
	fallback := truncateText(n.Title, maxFallbackLength, slackTruncationSuffix)

	blocks := []SlackBlock{
		{
			Type: "header",
			Text: &SlackTextObject{
				Type: "plain_text",
				Text: truncateText(n.Title, maxHeaderTextLength, slackTruncationSuffix),
			},
		},
		{
			Type: "section",
			Text: &SlackTextObject{
				Type: "mrkdwn",
				Text: truncateText(sectionText(n), maxSectionTextLength, slackTruncationSuffix),
			},
		},
	}

	if footer := contextText(n); footer != "" {
		blocks = append(blocks, SlackBlock{
			Type:     "context",
			Elements: []SlackTextObject{{Type: "mrkdwn", Text: footer}},
		})
	}

	return SlackMessage{Channel: channel, Text: fallback, Blocks: blocks}
}

// sectionText falls back to the title because Slack rejects empty section text.
func sectionText(n *entity.Notification) string {
	if strings.TrimSpace(n.Body) != "" {
		return n.Body
	}
	return n.Title
}

func contextText(n *entity.Notification) string {
	parts := make([]string, 0, 2)
	if n.EventType != "" {
		parts = append(parts, "*Event:* "+n.EventType)
	}
	if n.EntityType != "" {
		parts = append(parts, "*"+n.EntityType+":* "+n.EntityID)
	}
	return strings.Join(parts, " • ")
}

// wrapBreakerError turns a circuit breaker rejection into a TransportError.
func wrapBreakerError(provider string, err error) error {
	if circuitbreaker.IsRejection(err) {
		return &entity.TransportError{Provider: provider, Err: err}
	}
	return err
}
