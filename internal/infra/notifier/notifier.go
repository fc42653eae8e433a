// Package notifier contains the channel adapters of the delivery engine.
// Each adapter translates a notification into one external system's wire
// format, executes the transport call and converts every outcome, including
// missing configuration and provider failures, into an entity.DeliveryResult.
//
// Adapters are safe for concurrent use. Provider clients, rate limiters and
// circuit breakers are built once at construction and shared read-only.
package notifier

import (
	"context"
	"log/slog"

	"notify-engine/internal/domain/entity"
	"notify-engine/internal/observability/logging"
)

// finish converts the outcome of one channel attempt into a DeliveryResult
// and logs it with the request ID carried by ctx.
func finish(ctx context.Context, channelType entity.ChannelType, n *entity.Notification, metadata map[string]any, err error) entity.DeliveryResult {
	logger := logging.FromContext(ctx).With(
		slog.String("channel_type", string(channelType)),
		slog.String("notification_id", n.ID))

	if err == nil {
		logger.Debug("channel delivery succeeded")
		return entity.Succeeded(channelType, metadata)
	}

	result := entity.Failed(channelType, err)
	result.Error = SanitizeError(err)

	if entity.IsConfigurationError(err) {
		logger.Info("channel not configured, skipping delivery",
			slog.String("reason", result.Error))
	} else {
		logger.Warn("channel delivery failed",
			slog.String("error", result.Error))
	}
	return result
}
