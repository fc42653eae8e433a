// Package resilience provides fault tolerance patterns for outbound provider
// calls and the audit store.
//
//   - circuitbreaker: gobreaker-backed breakers for Slack, PagerDuty, Twilio,
//     SMTP and the delivery status store
//   - retry: exponential backoff with jitter for idempotent provider calls
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.PagerDutyConfig())
//	err := cb.Run(func() error {
//	    return retry.WithBackoff(ctx, retry.PagerDutyConfig(), send)
//	})
package resilience
