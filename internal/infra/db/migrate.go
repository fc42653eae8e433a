package db

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS notification_channels (
    id          TEXT PRIMARY KEY,
    tenant      TEXT NOT NULL,
    user_id     TEXT NOT NULL,
    type        TEXT NOT NULL,
    config      JSONB NOT NULL DEFAULT '{}'::jsonb,
    enabled     BOOLEAN NOT NULL DEFAULT TRUE,
    is_default  BOOLEAN NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_notification_channels_user
    ON notification_channels(tenant, user_id) WHERE enabled = TRUE`,

	`CREATE TABLE IF NOT EXISTS email_templates (
    id             SERIAL PRIMARY KEY,
    tenant         TEXT NOT NULL,
    event_type     TEXT NOT NULL,
    subject        TEXT NOT NULL,
    body_template  TEXT NOT NULL,
    is_active      BOOLEAN NOT NULL DEFAULT TRUE,
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_email_templates_lookup
    ON email_templates(tenant, event_type) WHERE is_active = TRUE`,

	`CREATE TABLE IF NOT EXISTS notification_delivery_status (
    id               BIGSERIAL PRIMARY KEY,
    tenant           TEXT NOT NULL,
    notification_id  TEXT NOT NULL,
    channel_id       TEXT NOT NULL,
    status           TEXT NOT NULL CHECK (status IN ('sent', 'failed')),
    error            TEXT,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_status_notification
    ON notification_delivery_status(tenant, notification_id)`,

	`CREATE TABLE IF NOT EXISTS pending_notifications (
    id            TEXT NOT NULL,
    tenant        TEXT NOT NULL,
    payload       JSONB NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    processed_at  TIMESTAMPTZ,
    PRIMARY KEY (tenant, id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_pending_notifications_unprocessed
    ON pending_notifications(tenant, created_at) WHERE processed_at IS NULL`,
}

// dropSchema reverses schema. Indexes go with their tables.
var dropSchema = []string{
	`DROP TABLE IF EXISTS pending_notifications`,
	`DROP TABLE IF EXISTS notification_delivery_status`,
	`DROP TABLE IF EXISTS email_templates`,
	`DROP TABLE IF EXISTS notification_channels`,
}

// MigrateUp creates the engine tables and indexes. It stops at the first
// failing statement.
func MigrateUp(ctx context.Context, db *sql.DB) error {
	return apply(ctx, db, "migrate up", schema)
}

// MigrateDown drops the engine tables. All data in them is lost.
func MigrateDown(ctx context.Context, db *sql.DB) error {
	return apply(ctx, db, "migrate down", dropSchema)
}

func apply(ctx context.Context, db *sql.DB, op string, statements []string) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: statement %d: %w", op, i+1, err)
		}
	}
	return nil
}
