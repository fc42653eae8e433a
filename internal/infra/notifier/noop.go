package notifier

import (
	"context"
	"log/slog"

	"notify-engine/internal/observability/logging"
)

// NoOpEmailSender is used when no mail relay is configured.
// It accepts nothing, so email deliveries fail with a structured result
// instead of a nil-pointer panic. This follows the Null Object pattern.
type NoOpEmailSender struct{}

// NewNoOpEmailSender creates a new NoOpEmailSender instance.
func NewNoOpEmailSender() *NoOpEmailSender {
	return &NoOpEmailSender{}
}

// SendEmail reports the message as not sent.
func (s *NoOpEmailSender) SendEmail(ctx context.Context, msg EmailMessage) (bool, error) {
	logging.FromContext(ctx).Warn("email sender not configured, dropping message",
		slog.String("subject", msg.Subject))
	return false, nil
}
