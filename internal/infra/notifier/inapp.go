package notifier

import (
	"context"

	"notify-engine/internal/domain/entity"
)

// InAppAdapter acknowledges in-app delivery. The feed itself is read from the
// notification store by a separate path, so there is nothing to send.
type InAppAdapter struct{}

// NewInAppAdapter creates an InAppAdapter.
func NewInAppAdapter() *InAppAdapter {
	return &InAppAdapter{}
}

// Type returns entity.ChannelInApp.
func (a *InAppAdapter) Type() entity.ChannelType {
	return entity.ChannelInApp
}

// Deliver always succeeds.
func (a *InAppAdapter) Deliver(ctx context.Context, tenant string, _ entity.ChannelConfig, n *entity.Notification) entity.DeliveryResult {
	return finish(ctx, entity.ChannelInApp, n, nil, nil)
}
