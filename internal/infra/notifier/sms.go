package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"notify-engine/internal/domain/entity"
	"notify-engine/internal/observability/logging"
	"notify-engine/internal/resilience/circuitbreaker"
)

// DefaultTwilioBaseURL is the Twilio REST API base.
const DefaultTwilioBaseURL = "https://api.twilio.com"

// maxSMSLength is the longest body Twilio accepts for one message.
const maxSMSLength = 1600

// TwilioConfig holds the process-wide Twilio credentials.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string

	// BaseURL overrides the API base (tests, proxies)
	BaseURL string

	RequestsPerSecond float64
	Burst             int
}

// Enabled reports whether every credential is present.
func (c TwilioConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.FromNumber != ""
}

// SMSAdapter sends text messages through the Twilio Messages API.
//
// Channel config:
//   - phoneNumber: E.164 destination number (required)
type SMSAdapter struct {
	config      TwilioConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
}

// NewSMSAdapter creates an SMSAdapter. Missing credentials are reported per
// delivery rather than at construction.
func NewSMSAdapter(config TwilioConfig, httpClient *http.Client) *SMSAdapter {
	if config.BaseURL == "" {
		config.BaseURL = DefaultTwilioBaseURL
	}
	cbCfg := circuitbreaker.TwilioConfig()
	cbCfg.IsSuccessful = breakerSuccess
	return &SMSAdapter{
		config:      config,
		httpClient:  httpClient,
		rateLimiter: NewRateLimiter(config.RequestsPerSecond, config.Burst),
		breaker:     circuitbreaker.New(cbCfg),
	}
}

type twilioMessageResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// Type returns entity.ChannelSMS.
func (a *SMSAdapter) Type() entity.ChannelType {
	return entity.ChannelSMS
}

// Deliver sends the SMS. Result metadata carries {messageId}.
func (a *SMSAdapter) Deliver(ctx context.Context, tenant string, cfg entity.ChannelConfig, n *entity.Notification) entity.DeliveryResult {
	metadata, err := a.send(ctx, cfg, n)
	return finish(ctx, entity.ChannelSMS, n, metadata, err)
}

func (a *SMSAdapter) send(ctx context.Context, cfg entity.ChannelConfig, n *entity.Notification) (map[string]any, error) {
	to := cfg.String("phoneNumber")
	if to == "" {
		return nil, entity.NewConfigurationError("phoneNumber", "Phone number not configured")
	}
	if !a.config.Enabled() {
		logging.FromContext(ctx).Warn("twilio credentials missing, sms delivery disabled")
		return nil, entity.NewConfigurationError("twilio", "Twilio not configured")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", a.config.FromNumber)
	form.Set("Body", smsBody(n))

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimRight(a.config.BaseURL, "/"), url.PathEscape(a.config.AccountSID))

	if err := a.rateLimiter.Allow(ctx); err != nil {
		return nil, &entity.TransportError{Provider: "Twilio", Err: fmt.Errorf("rate limiter: %w", err)}
	}

	var msgResp twilioMessageResponse
	err := a.breaker.Run(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return &entity.TransportError{Provider: "Twilio", Err: fmt.Errorf("create http request: %w", stripURL(err))}
		}
		req.SetBasicAuth(a.config.AccountSID, a.config.AuthToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")

		resp, err := sendRequest(a.httpClient, "Twilio", req)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(resp.Body, &msgResp); err != nil {
			return &entity.TransportError{Provider: "Twilio", Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	})
	if err != nil {
		return nil, wrapBreakerError("Twilio", err)
	}

	return map[string]any{"messageId": msgResp.SID}, nil
}

// smsBody composes "<title>: <body>" bounded to maxSMSLength characters.
func smsBody(n *entity.Notification) string {
	text := n.Title
	if n.Body != "" {
		text += ": " + n.Body
	}
	return truncateText(text, maxSMSLength, "...")
}
