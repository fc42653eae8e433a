package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"notify-engine/internal/domain/entity"
	"notify-engine/internal/observability/logging"
	"notify-engine/internal/observability/requestid"
	"notify-engine/internal/observability/tracing"
	"notify-engine/internal/repository"
)

// Default dispatch settings
const (
	DefaultAttemptTimeout = 30 * time.Second       // Upper bound for one channel attempt
	DefaultBatchSize      = 10                     // Notifications delivered concurrently in bulk
	DefaultBatchDelay     = 100 * time.Millisecond // Pause between bulk batches
	statusWriteTimeout    = 10 * time.Second       // Upper bound for one audit write
)

// Options configures dispatching. Zero values fall back to the defaults.
type Options struct {
	// AttemptTimeout bounds one channel attempt so that a hung provider
	// cannot stall a notification or a bulk batch
	AttemptTimeout time.Duration

	// BatchSize is the number of notifications delivered concurrently by
	// DeliverBulk
	BatchSize int

	// BatchDelay is the pause between two bulk batches
	BatchDelay time.Duration
}

// DefaultOptions returns the production dispatch settings.
func DefaultOptions() Options {
	return Options{
		AttemptTimeout: DefaultAttemptTimeout,
		BatchSize:      DefaultBatchSize,
		BatchDelay:     DefaultBatchDelay,
	}
}

func (o Options) withDefaults() Options {
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = DefaultAttemptTimeout
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.BatchDelay < 0 {
		o.BatchDelay = 0
	}
	return o
}

// Service delivers notifications to every channel their user has enabled.
type Service interface {
	// Deliver fans n out to the enabled channels of n.User.
	//
	// Returns:
	//   - []entity.DeliveryResult: one result per resolved channel, in resolver order
	//   - error: ErrInvalidNotification or ErrChannelResolution; individual
	//     channel failures are results, never errors
	Deliver(ctx context.Context, tenant string, n *entity.Notification) ([]entity.DeliveryResult, error)

	// DeliverBulk delivers notifications in batches of Options.BatchSize,
	// pausing Options.BatchDelay between batches.
	//
	// The returned map has one key per notification: its id, "#i" when the id
	// is empty, or "id#i" when the id repeats an earlier one. A notification
	// whose whole dispatch failed maps to a single synthetic failure result.
	DeliverBulk(ctx context.Context, tenant string, notifications []*entity.Notification) map[string][]entity.DeliveryResult
}

// service is the concrete implementation of Service interface.
type service struct {
	resolver repository.ChannelRepository
	registry *Registry
	recorder *StatusRecorder
	opts     Options
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewService creates a delivery service.
//
// Parameters:
//   - resolver: Source of the users' enabled channels
//   - registry: Channel adapters by type
//   - recorder: Audit writer; nil disables status recording
//   - opts: Dispatch settings
func NewService(resolver repository.ChannelRepository, registry *Registry, recorder *StatusRecorder, opts Options) Service {
	return newService(resolver, registry, recorder, opts)
}

func newService(resolver repository.ChannelRepository, registry *Registry, recorder *StatusRecorder, opts Options) *service {
	if registry == nil {
		registry = NewRegistry()
	}
	return &service{
		resolver: resolver,
		registry: registry,
		recorder: recorder,
		opts:     opts.withDefaults(),
		sleep:    sleepContext,
	}
}

// Deliver implements Service.Deliver.
func (s *service) Deliver(ctx context.Context, tenant string, n *entity.Notification) ([]entity.DeliveryResult, error) {
	if n == nil {
		recordDispatchFailure("invalid")
		return nil, fmt.Errorf("%w: notification is nil", ErrInvalidNotification)
	}
	if err := n.Validate(); err != nil {
		recordDispatchFailure("invalid")
		return nil, fmt.Errorf("%w: %w", ErrInvalidNotification, err)
	}

	ctx, _ = requestid.Ensure(ctx)
	ctx, span := tracing.StartSpan(ctx, "notify.Deliver", trace.WithAttributes(
		attribute.String("tenant", tenant),
		attribute.String("notification.id", n.ID),
		attribute.String("notification.event_type", n.EventType),
	))
	defer span.End()

	logger := logging.FromContext(ctx).With(
		slog.String("tenant", tenant),
		slog.String("notification_id", n.ID),
		slog.String("event_type", n.EventType))

	channels, err := s.resolver.ResolveChannels(ctx, tenant, n.User.ID)
	if err != nil {
		recordDispatchFailure("resolution")
		span.RecordError(err)
		span.SetStatus(codes.Error, "channel resolution failed")
		logger.Error("failed to resolve notification channels",
			slog.String("user_id", n.User.ID),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", ErrChannelResolution, err)
	}

	span.SetAttributes(attribute.Int("notification.channels", len(channels)))
	if len(channels) == 0 {
		logger.Debug("no enabled channels for user", slog.String("user_id", n.User.ID))
		return []entity.DeliveryResult{}, nil
	}

	results := make([]entity.DeliveryResult, len(channels))
	var wg sync.WaitGroup
	for i, ch := range channels {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.attempt(ctx, tenant, ch, n)
		}()
	}
	wg.Wait()

	s.recordStatus(ctx, logger, tenant, n.ID, channels, results)

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	logger.Info("notification delivered",
		slog.Int("channels", len(channels)),
		slog.Int("succeeded", succeeded),
		slog.Int("failed", len(channels)-succeeded))

	return results, nil
}

// attempt runs one channel adapter bounded by the attempt timeout.
func (s *service) attempt(ctx context.Context, tenant string, ch entity.Channel, n *entity.Notification) entity.DeliveryResult {
	ctx, span := tracing.StartSpan(ctx, "notify.attempt", trace.WithAttributes(
		attribute.String("channel.id", ch.ID),
		attribute.String("channel.type", string(ch.Type)),
	))
	defer span.End()

	activeAttempts.Inc()
	defer activeAttempts.Dec()

	ctx, cancel := context.WithTimeout(ctx, s.opts.AttemptTimeout)
	defer cancel()

	label := string(ch.Type)
	if _, ok := s.registry.Lookup(ch.Type); !ok {
		label = unsupportedLabel
	}

	start := time.Now()
	done := make(chan entity.DeliveryResult, 1)
	go func() {
		done <- s.registry.Deliver(ctx, tenant, ch, n)
	}()

	var result entity.DeliveryResult
	select {
	case result = <-done:
	case <-ctx.Done():
		// The adapter keeps running until it notices the cancellation; its
		// result is dropped.
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s", ErrAttemptTimeout, s.opts.AttemptTimeout)
		}
		result = entity.Failed(ch.Type, err)
		logging.FromContext(ctx).Warn("channel delivery abandoned",
			slog.String("channel_id", ch.ID),
			slog.String("channel_type", string(ch.Type)),
			slog.String("notification_id", n.ID),
			slog.Any("error", err))
	}

	recordAttempt(label, result.Success, time.Since(start))
	if !result.Success {
		span.SetStatus(codes.Error, result.Error)
	}
	return result
}

// recordStatus writes the audit rows and logs a failure without returning it.
func (s *service) recordStatus(ctx context.Context, logger *slog.Logger, tenant, notificationID string, channels []entity.Channel, results []entity.DeliveryResult) {
	if s.recorder == nil {
		return
	}

	// The audit trail is written even when the caller gave up meanwhile.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()

	err := s.recorder.Record(writeCtx, tenant, notificationID, channels, results)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrTableNotFound):
		recordStatusWriteFailure("table_missing")
		logger.Warn("notification delivery status table not found, skipping status update")
	default:
		recordStatusWriteFailure("error")
		logger.Error("failed to record notification delivery status", slog.Any("error", err))
	}
}

// sleepContext pauses for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
