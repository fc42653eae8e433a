package notifier

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"notify-engine/internal/domain/entity"
)

// DefaultSignatureHeader carries the HMAC signature of signed webhook bodies.
const DefaultSignatureHeader = "X-Notify-Signature"

// WebhookConfig contains the process-wide settings of the generic webhook adapter.
type WebhookConfig struct {
	// SignatureHeader names the header carrying "sha256=<hex>"
	SignatureHeader string

	// BlockPrivateNetworks rejects URLs pointing at loopback, private or
	// link-local addresses
	BlockPrivateNetworks bool
}

// WebhookAdapter POSTs the notification as JSON to a tenant-supplied URL.
//
// Channel config:
//   - url: endpoint (required)
//   - secret: HMAC-SHA256 signing key (optional)
//   - headers: extra request headers (optional)
type WebhookAdapter struct {
	config     WebhookConfig
	httpClient *http.Client
	now        func() time.Time
}

// NewWebhookAdapter creates a WebhookAdapter sharing httpClient.
func NewWebhookAdapter(config WebhookConfig, httpClient *http.Client) *WebhookAdapter {
	if config.SignatureHeader == "" {
		config.SignatureHeader = DefaultSignatureHeader
	}
	return &WebhookAdapter{config: config, httpClient: httpClient, now: time.Now}
}

// WebhookPayload is the JSON body delivered to generic webhooks.
type WebhookPayload struct {
	entity.Notification
	Tenant    string `json:"tenant"`
	Timestamp string `json:"timestamp"`
}

// Type returns entity.ChannelWebhook.
func (a *WebhookAdapter) Type() entity.ChannelType {
	return entity.ChannelWebhook
}

// Deliver posts the payload. Result metadata carries {status}.
func (a *WebhookAdapter) Deliver(ctx context.Context, tenant string, cfg entity.ChannelConfig, n *entity.Notification) entity.DeliveryResult {
	metadata, err := a.send(ctx, tenant, cfg, n)
	return finish(ctx, entity.ChannelWebhook, n, metadata, err)
}

func (a *WebhookAdapter) send(ctx context.Context, tenant string, cfg entity.ChannelConfig, n *entity.Notification) (map[string]any, error) {
	endpoint := cfg.String("url")
	if endpoint == "" {
		return nil, entity.NewConfigurationError("url", "Webhook URL not configured")
	}
	if err := entity.ValidateEndpointURL(endpoint, a.config.BlockPrivateNetworks); err != nil {
		return nil, entity.NewConfigurationError("url", fmt.Sprintf("Webhook URL invalid: %v", err))
	}

	body, err := json.Marshal(WebhookPayload{
		Notification: *n,
		Tenant:       tenant,
		Timestamp:    a.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal webhook payload: %w", err)
	}

	headers := http.Header{}
	for k, v := range cfg.StringMap("headers") {
		headers.Set(k, v)
	}
	// Custom headers never replace the signature
	if secret := cfg.String("secret"); secret != "" {
		headers.Set(a.config.SignatureHeader, "sha256="+Sign(secret, body))
	}

	resp, err := postJSON(ctx, a.httpClient, "Webhook", endpoint, body, headers)
	if err != nil {
		return nil, err
	}

	return map[string]any{"status": resp.StatusCode}, nil
}

// Sign returns the lowercase hex HMAC-SHA256 of body keyed by secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
