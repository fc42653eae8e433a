package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"notify-engine/internal/domain/entity"
	"notify-engine/internal/repository"
	"notify-engine/internal/resilience/retry"
)

// BulkDeliverer delivers a batch of notifications for one tenant.
type BulkDeliverer interface {
	DeliverBulk(ctx context.Context, tenant string, notifications []*entity.Notification) map[string][]entity.DeliveryResult
}

// RunStats summarizes one drain run.
type RunStats struct {
	Tenants       int
	Notifications int
	Delivered     int // at least one channel succeeded, or the user has no channels
	Failed        int
}

// OutboxDrainer moves pending notifications from the outbox to the delivery
// engine. Delivery failures are final for the outbox: every notification
// handed to the engine is marked processed, except those left unattempted
// because the run was canceled.
type OutboxDrainer struct {
	pending   repository.PendingNotificationRepository
	deliverer BulkDeliverer
	limit     int
	metrics   *WorkerMetrics
	logger    *slog.Logger
}

// NewOutboxDrainer creates a drainer reading at most limit notifications per
// tenant per run.
func NewOutboxDrainer(pending repository.PendingNotificationRepository, deliverer BulkDeliverer, limit int, metrics *WorkerMetrics, logger *slog.Logger) *OutboxDrainer {
	return &OutboxDrainer{
		pending:   pending,
		deliverer: deliverer,
		limit:     limit,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run drains every tenant once. A failing tenant does not stop the others;
// their errors are joined into the returned error.
func (d *OutboxDrainer) Run(ctx context.Context) (RunStats, error) {
	start := time.Now()
	stats, err := d.run(ctx)

	status := RunSuccess
	if err != nil {
		status = RunFailure
	}
	d.metrics.RecordRun(status, time.Since(start).Seconds())
	d.metrics.RecordNotifications(stats.Delivered, stats.Failed)

	d.logger.Info("outbox drain finished",
		slog.String("status", status),
		slog.Int("tenants", stats.Tenants),
		slog.Int("notifications", stats.Notifications),
		slog.Int("delivered", stats.Delivered),
		slog.Int("failed", stats.Failed),
		slog.Duration("duration", time.Since(start)))
	return stats, err
}

func (d *OutboxDrainer) run(ctx context.Context) (RunStats, error) {
	var stats RunStats

	tenants, err := d.pending.ListTenants(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrTableNotFound) {
			d.logger.Warn("pending notification table not found, skipping drain")
			return stats, nil
		}
		return stats, fmt.Errorf("list tenants: %w", err)
	}

	var errs []error
	for _, tenant := range tenants {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		stats.Tenants++
		if err := d.drainTenant(ctx, tenant, &stats); err != nil {
			d.logger.Error("outbox drain failed for tenant",
				slog.String("tenant", tenant),
				slog.Any("error", err))
			errs = append(errs, fmt.Errorf("tenant %s: %w", tenant, err))
		}
	}
	return stats, errors.Join(errs...)
}

func (d *OutboxDrainer) drainTenant(ctx context.Context, tenant string, stats *RunStats) error {
	notifications, err := d.pending.ListPending(ctx, tenant, d.limit)
	if err != nil {
		return fmt.Errorf("list pending: %w", err)
	}
	if len(notifications) == 0 {
		return nil
	}

	results := d.deliverer.DeliverBulk(ctx, tenant, notifications)
	canceled := ctx.Err() != nil

	processed := make([]string, 0, len(notifications))
	for _, n := range notifications {
		res, ok := results[n.ID]
		if !ok {
			continue
		}
		if canceled && !attempted(res) {
			continue
		}
		stats.Notifications++
		if delivered(res) {
			stats.Delivered++
		} else {
			stats.Failed++
		}
		processed = append(processed, n.ID)
	}

	if len(processed) == 0 {
		return nil
	}
	// Delivered notifications are marked even when the tick was canceled.
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	err = retry.WithBackoff(markCtx, retry.DBConfig(), func() error {
		return d.pending.MarkProcessed(markCtx, tenant, processed)
	})
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

// attempted reports whether results come from real channel attempts rather
// than a synthetic dispatch failure, which carries no channel type.
func attempted(results []entity.DeliveryResult) bool {
	if len(results) == 0 {
		return true
	}
	for _, r := range results {
		if r.ChannelType != "" {
			return true
		}
	}
	return false
}

func delivered(results []entity.DeliveryResult) bool {
	if len(results) == 0 {
		return true
	}
	for _, r := range results {
		if r.Success {
			return true
		}
	}
	return false
}
