package notify

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"notify-engine/internal/domain/entity"
	"notify-engine/internal/observability/logging"
	"notify-engine/internal/observability/requestid"
	"notify-engine/internal/observability/tracing"
)

// DeliverBulk implements Service.DeliverBulk.
//
// Batch N+1 starts only after every notification of batch N has completed
// and the batch delay has elapsed. If ctx is canceled during the pause the
// remaining notifications are reported as failed without being attempted.
func (s *service) DeliverBulk(ctx context.Context, tenant string, notifications []*entity.Notification) map[string][]entity.DeliveryResult {
	out := make(map[string][]entity.DeliveryResult, len(notifications))
	if len(notifications) == 0 {
		return out
	}

	ctx, _ = requestid.Ensure(ctx)
	ctx, span := tracing.StartSpan(ctx, "notify.DeliverBulk", trace.WithAttributes(
		attribute.String("tenant", tenant),
		attribute.Int("notifications", len(notifications)),
		attribute.Int("batch_size", s.opts.BatchSize),
	))
	defer span.End()

	logger := logging.FromContext(ctx).With(slog.String("tenant", tenant))
	logger.Info("bulk delivery started",
		slog.Int("notifications", len(notifications)),
		slog.Int("batch_size", s.opts.BatchSize))

	var mu sync.Mutex
	store := func(key string, results []entity.DeliveryResult) {
		mu.Lock()
		out[key] = results
		mu.Unlock()
	}

	keys := bulkKeys(notifications)
	size := s.opts.BatchSize
	for start := 0; start < len(notifications); start += size {
		if start > 0 {
			if err := s.sleep(ctx, s.opts.BatchDelay); err != nil {
				logger.Warn("bulk delivery canceled",
					slog.Int("delivered", start),
					slog.Int("remaining", len(notifications)-start),
					slog.Any("error", err))
				for i := start; i < len(notifications); i++ {
					recordDispatchFailure("canceled")
					store(keys[i], syntheticFailure(fmt.Errorf("bulk delivery canceled: %w", err)))
				}
				break
			}
		}

		end := min(start+size, len(notifications))

		var g errgroup.Group
		g.SetLimit(size)
		for i := start; i < end; i++ {
			n := notifications[i]
			g.Go(func() error {
				store(keys[i], s.deliverOne(ctx, tenant, n))
				return nil
			})
		}
		_ = g.Wait()
		recordBulkBatch()
	}

	logger.Info("bulk delivery completed", slog.Int("notifications", len(out)))
	return out
}

// deliverOne delivers one bulk member and turns a whole-notification failure
// into a single synthetic result.
func (s *service) deliverOne(ctx context.Context, tenant string, n *entity.Notification) (results []entity.DeliveryResult) {
	defer func() {
		if rec := recover(); rec != nil {
			recordDispatchFailure("panic")
			logging.FromContext(ctx).Error("panic in notification dispatch",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			results = syntheticFailure(fmt.Errorf("%w: %v", ErrDispatchPanic, rec))
		}
	}()

	results, err := s.Deliver(ctx, tenant, n)
	if err != nil {
		return syntheticFailure(err)
	}
	return results
}

// syntheticFailure is the result list of a notification that never reached
// a channel. Its channel type is empty.
func syntheticFailure(err error) []entity.DeliveryResult {
	return []entity.DeliveryResult{entity.Failed("", err)}
}

// bulkKeys returns the result map key of every notification. Notifications
// without an id are keyed by their position ("#i"). A repeated key gets the
// position appended ("id#i") so every input keeps its own entry.
func bulkKeys(notifications []*entity.Notification) []string {
	keys := make([]string, len(notifications))
	seen := make(map[string]struct{}, len(notifications))
	for i, n := range notifications {
		key := "#" + strconv.Itoa(i)
		if n != nil && n.ID != "" {
			key = n.ID
		}
		for {
			if _, dup := seen[key]; !dup {
				break
			}
			key += "#" + strconv.Itoa(i)
		}
		seen[key] = struct{}{}
		keys[i] = key
	}
	return keys
}
