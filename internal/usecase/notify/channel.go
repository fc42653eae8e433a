// Package notify implements the delivery engine: it resolves the channels a
// user has enabled, fans a notification out to one adapter per channel,
// records a delivery-status audit row for every attempt and paces bulk
// deliveries in fixed-size batches.
package notify

import (
	"context"

	"notify-engine/internal/domain/entity"
)

// Adapter delivers a notification over one channel type (email, Slack,
// PagerDuty, etc.).
//
// Contract:
//   - Deliver never panics on provider errors and never returns an error:
//     every outcome, including missing configuration, is a DeliveryResult
//   - A required config field that is absent yields a failed result without
//     any external call
//   - Implementations must respect context cancellation and be safe for
//     concurrent use
type Adapter interface {
	// Type returns the channel type this adapter serves.
	Type() entity.ChannelType

	// Deliver sends n using the channel's configuration.
	Deliver(ctx context.Context, tenant string, cfg entity.ChannelConfig, n *entity.Notification) entity.DeliveryResult
}
