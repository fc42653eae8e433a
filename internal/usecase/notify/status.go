package notify

import (
	"context"
	"fmt"

	"notify-engine/internal/domain/entity"
	"notify-engine/internal/repository"
)

// StatusRecorder writes the delivery-status audit rows of one notification.
type StatusRecorder struct {
	repo repository.DeliveryStatusRepository
}

// NewStatusRecorder creates a StatusRecorder. A nil repo disables recording.
func NewStatusRecorder(repo repository.DeliveryStatusRepository) *StatusRecorder {
	return &StatusRecorder{repo: repo}
}

// Record persists one row per (channel, result) pair in a single batch.
// channels and results are parallel slices in resolver order.
//
// The returned error is informational: callers log it and keep the results
// they already computed. A missing audit table surfaces as
// repository.ErrTableNotFound.
func (r *StatusRecorder) Record(ctx context.Context, tenant, notificationID string, channels []entity.Channel, results []entity.DeliveryResult) error {
	if r == nil || r.repo == nil || len(results) == 0 {
		return nil
	}
	if len(channels) != len(results) {
		return fmt.Errorf("record delivery status: %d channels, %d results", len(channels), len(results))
	}

	statuses := make([]entity.DeliveryStatus, len(results))
	for i, res := range results {
		statuses[i] = entity.DeliveryStatus{
			NotificationID: notificationID,
			ChannelID:      channels[i].ID,
			Status:         entity.StatusSent,
		}
		if !res.Success {
			statuses[i].Status = entity.StatusFailed
			statuses[i].Error = res.Error
		}
	}

	if err := r.repo.SaveBatch(ctx, tenant, statuses); err != nil {
		return fmt.Errorf("record delivery status: %w", err)
	}
	return nil
}
