// Package repository declares the persistence collaborators consumed by the
// delivery engine. Implementations live under internal/infra.
package repository

import (
	"context"
	"errors"

	"notify-engine/internal/domain/entity"
)

// ErrTableNotFound is returned by stores whose backing table does not exist.
var ErrTableNotFound = errors.New("table not found")

// ChannelRepository resolves the enabled delivery channels of a user.
type ChannelRepository interface {
	// ResolveChannels returns the enabled channels of userID in a stable order.
	ResolveChannels(ctx context.Context, tenant, userID string) ([]entity.Channel, error)
}

// EmailTemplateRepository looks up tenant-specific email templates.
type EmailTemplateRepository interface {
	// FindActive returns the active template for eventType, or nil when the
	// tenant has none.
	FindActive(ctx context.Context, tenant, eventType string) (*entity.EmailTemplate, error)
}

// DeliveryStatusRepository persists the delivery audit trail.
type DeliveryStatusRepository interface {
	// SaveBatch writes all statuses in a single statement.
	SaveBatch(ctx context.Context, tenant string, statuses []entity.DeliveryStatus) error
}

// PendingNotificationRepository is the outbox drained by the worker.
type PendingNotificationRepository interface {
	ListTenants(ctx context.Context) ([]string, error)
	ListPending(ctx context.Context, tenant string, limit int) ([]*entity.Notification, error)
	MarkProcessed(ctx context.Context, tenant string, ids []string) error
}
