package notify

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"

	"notify-engine/internal/domain/entity"
	"notify-engine/internal/observability/logging"
)

// Registry maps channel types to adapters. It is populated at construction
// and read-only afterwards.
type Registry struct {
	adapters map[entity.ChannelType]Adapter
}

// NewRegistry creates a Registry holding adapters. A later adapter for the
// same type replaces an earlier one.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[entity.ChannelType]Adapter, len(adapters))}
	for _, a := range adapters {
		if a != nil {
			r.adapters[a.Type()] = a
		}
	}
	return r
}

// Lookup returns the adapter registered for channelType.
func (r *Registry) Lookup(channelType entity.ChannelType) (Adapter, bool) {
	a, ok := r.adapters[channelType]
	return a, ok
}

// Types returns the registered channel types in lexical order.
func (r *Registry) Types() []entity.ChannelType {
	types := make([]entity.ChannelType, 0, len(r.adapters))
	for t := range r.adapters {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Deliver dispatches n to the adapter registered for ch.Type.
//
// Unknown types fail with an UnsupportedChannelError without invoking any
// adapter. An adapter panic is recovered into a failed result.
func (r *Registry) Deliver(ctx context.Context, tenant string, ch entity.Channel, n *entity.Notification) (result entity.DeliveryResult) {
	adapter, ok := r.Lookup(ch.Type)
	if !ok {
		recordUnsupported()
		logging.FromContext(ctx).Warn("unsupported channel type",
			slog.String("channel_id", ch.ID),
			slog.String("channel_type", string(ch.Type)))
		return entity.Failed(ch.Type, &entity.UnsupportedChannelError{Type: ch.Type})
	}

	defer func() {
		if rec := recover(); rec != nil {
			logging.FromContext(ctx).Error("panic in channel adapter",
				slog.String("channel_id", ch.ID),
				slog.String("channel_type", string(ch.Type)),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			result = entity.Failed(ch.Type, fmt.Errorf("channel adapter panicked: %v", rec))
		}
	}()

	result = adapter.Deliver(ctx, tenant, ch.Config, n)
	result.ChannelType = ch.Type
	if !result.Success && result.Error == "" {
		result = entity.Failed(ch.Type, nil)
	}
	if result.Success {
		result.Error = ""
	}
	return result
}
