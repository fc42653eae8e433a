package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"notify-engine/internal/domain/entity"
	"notify-engine/internal/repository"
)

// PendingNotificationRepo is the outbox of composed notifications awaiting
// delivery. payload holds the JSON encoding of entity.Notification.
type PendingNotificationRepo struct{ db *sql.DB }

func NewPendingNotificationRepo(db *sql.DB) repository.PendingNotificationRepository {
	return &PendingNotificationRepo{db: db}
}

// ListTenants returns the tenants with unprocessed notifications.
func (repo *PendingNotificationRepo) ListTenants(ctx context.Context) ([]string, error) {
	const query = `
SELECT DISTINCT tenant
FROM pending_notifications
WHERE processed_at IS NULL
ORDER BY tenant`

	var tenants []string
	err := timed("list_pending_tenants", func() error {
		rows, err := repo.db.QueryContext(ctx, query)
		if err != nil {
			return wrapErr("ListTenants", err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var tenant string
			if err := rows.Scan(&tenant); err != nil {
				return fmt.Errorf("ListTenants: scan: %w", err)
			}
			tenants = append(tenants, tenant)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return tenants, nil
}

// ListPending returns up to limit unprocessed notifications of tenant, oldest first.
func (repo *PendingNotificationRepo) ListPending(ctx context.Context, tenant string, limit int) ([]*entity.Notification, error) {
	const query = `
SELECT id, payload
FROM pending_notifications
WHERE tenant = $1 AND processed_at IS NULL
ORDER BY created_at ASC, id ASC
LIMIT $2`

	var notifications []*entity.Notification
	err := timed("list_pending_notifications", func() error {
		rows, err := repo.db.QueryContext(ctx, query, tenant, limit)
		if err != nil {
			return wrapErr("ListPending", err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var (
				id      string
				payload []byte
			)
			if err := rows.Scan(&id, &payload); err != nil {
				return fmt.Errorf("ListPending: scan: %w", err)
			}

			var n entity.Notification
			if err := json.Unmarshal(payload, &n); err != nil {
				return fmt.Errorf("ListPending: unmarshal payload of %s: %w", id, err)
			}
			n.ID = id
			notifications = append(notifications, &n)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkProcessed stamps processed_at on ids.
func (repo *PendingNotificationRepo) MarkProcessed(ctx context.Context, tenant string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	const query = `
UPDATE pending_notifications
SET processed_at = NOW()
WHERE tenant = $1 AND id = ANY($2::text[]) AND processed_at IS NULL`

	return timed("mark_notifications_processed", func() error {
		if _, err := repo.db.ExecContext(ctx, query, tenant, ids); err != nil {
			return wrapErr("MarkProcessed", err)
		}
		return nil
	})
}
