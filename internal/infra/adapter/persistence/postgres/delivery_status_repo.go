package postgres

import (
	"context"

	"notify-engine/internal/domain/entity"
	"notify-engine/internal/repository"
)

type DeliveryStatusRepo struct{ db queryer }

// NewDeliveryStatusRepo creates the audit store. db is a *sql.DB or a
// *circuitbreaker.DBCircuitBreaker guarding one.
func NewDeliveryStatusRepo(db queryer) repository.DeliveryStatusRepository {
	return &DeliveryStatusRepo{db: db}
}

// SaveBatch writes every status with one INSERT over parallel arrays.
// Empty error strings are stored as NULL.
func (repo *DeliveryStatusRepo) SaveBatch(ctx context.Context, tenant string, statuses []entity.DeliveryStatus) error {
	if len(statuses) == 0 {
		return nil
	}

	const query = `
INSERT INTO notification_delivery_status (tenant, notification_id, channel_id, status, error)
SELECT $1, t.notification_id, t.channel_id, t.status, NULLIF(t.error, '')
FROM unnest($2::text[], $3::text[], $4::text[], $5::text[])
    AS t(notification_id, channel_id, status, error)`

	notificationIDs := make([]string, len(statuses))
	channelIDs := make([]string, len(statuses))
	states := make([]string, len(statuses))
	errs := make([]string, len(statuses))
	for i, s := range statuses {
		notificationIDs[i] = s.NotificationID
		channelIDs[i] = s.ChannelID
		states[i] = s.Status
		errs[i] = s.Error
	}

	return timed("insert_delivery_status", func() error {
		if _, err := repo.db.ExecContext(ctx, query, tenant, notificationIDs, channelIDs, states, errs); err != nil {
			return wrapErr("SaveBatch", err)
		}
		return nil
	})
}
