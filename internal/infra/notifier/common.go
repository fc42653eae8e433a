package notifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"notify-engine/internal/domain/entity"
	"notify-engine/internal/resilience/retry"
)

const (
	// maxErrorBodyLength bounds how much of a provider's error body is kept in
	// a DeliveryResult.
	maxErrorBodyLength = 200

	// maxResponseBodyBytes bounds how much of any provider response is read.
	maxResponseBodyBytes = 64 << 10

	userAgent = "notify-engine/1.0"
)

// httpResponse is the part of a provider response the adapters inspect.
type httpResponse struct {
	StatusCode int
	Status     string
	Body       []byte
}

// sendRequest executes req and reads a bounded response body.
//
// Returns:
//   - *httpResponse: always set when the provider answered, including non-2xx
//   - error: *entity.TransportError for network failures and non-2xx responses
//
// Non-2xx errors wrap a *retry.HTTPError so retry.IsRetryable can classify
// 429 and 5xx responses.
func sendRequest(client *http.Client, provider string, req *http.Request) (*httpResponse, error) {
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, &entity.TransportError{Provider: provider, Err: stripURL(err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	out := &httpResponse{StatusCode: resp.StatusCode, Status: statusText(resp), Body: body}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return out, nil
	}

	message := truncateText(strings.TrimSpace(string(body)), maxErrorBodyLength, "...")
	return out, &entity.TransportError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Status:     out.Status,
		Message:    message,
		Err:        &retry.HTTPError{StatusCode: resp.StatusCode, Message: message},
	}
}

// postJSON POSTs payload as application/json to endpoint.
func postJSON(ctx context.Context, client *http.Client, provider, endpoint string, payload []byte, headers http.Header) (*httpResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &entity.TransportError{Provider: provider, Err: fmt.Errorf("create http request: %w", stripURL(err))}
	}

	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	return sendRequest(client, provider, req)
}

// statusText returns the canonical reason phrase for the response status.
func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode)))
}

// stripURL removes the request URL from *url.Error values. Webhook URLs embed
// credentials, so they must never reach a DeliveryResult or a log line.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s request: %w", strings.ToLower(urlErr.Op), urlErr.Err)
	}
	return err
}

// isProviderFailure reports whether err says something about the provider's
// health: network failures, 429 and 5xx responses. Configuration errors and
// other 4xx responses are caused by one tenant's settings and must not trip a
// shared circuit breaker.
func isProviderFailure(err error) bool {
	if err == nil {
		return false
	}
	if entity.IsConfigurationError(err) {
		return false
	}
	var transportErr *entity.TransportError
	if errors.As(err, &transportErr) && transportErr.StatusCode != 0 {
		return transportErr.StatusCode == http.StatusTooManyRequests || transportErr.StatusCode >= 500
	}
	return true
}

// breakerSuccess is the circuit breaker classifier for shared providers.
func breakerSuccess(err error) bool {
	return !isProviderFailure(err)
}

// truncateText truncates text to at most maxLength runes.
// If truncated, suffix is appended within the limit.
func truncateText(text string, maxLength int, suffix string) string {
	if utf8.RuneCountInString(text) <= maxLength {
		return text
	}

	keep := maxLength - utf8.RuneCountInString(suffix)
	if keep < 0 {
		keep = 0
		suffix = string([]rune(suffix)[:maxLength])
	}

	return string([]rune(text)[:keep]) + suffix
}

var secretPatterns = []*regexp.Regexp{
	// Slack bot/user tokens
	regexp.MustCompile(`xox[abposr]-[A-Za-z0-9-]+`),
	// Basic auth credentials embedded in URLs
	regexp.MustCompile(`://[^/\s:@]+:[^/\s@]+@`),
}

// SanitizeError returns err's message with provider secrets masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	msg = secretPatterns[0].ReplaceAllString(msg, "xox*-****")
	msg = secretPatterns[1].ReplaceAllString(msg, "://****:****@")
	return msg
}
