package postgres

import (
	"context"
	"database/sql"
	"errors"

	"notify-engine/internal/domain/entity"
	"notify-engine/internal/repository"
)

type EmailTemplateRepo struct{ db *sql.DB }

func NewEmailTemplateRepo(db *sql.DB) repository.EmailTemplateRepository {
	return &EmailTemplateRepo{db: db}
}

// FindActive returns the active template for eventType, or nil when the
// tenant has none.
func (repo *EmailTemplateRepo) FindActive(ctx context.Context, tenant, eventType string) (*entity.EmailTemplate, error) {
	const query = `
SELECT tenant, event_type, subject, body_template, is_active
FROM email_templates
WHERE tenant = $1 AND event_type = $2 AND is_active = TRUE
ORDER BY updated_at DESC
LIMIT 1`

	var tmpl entity.EmailTemplate
	err := timed("find_email_template", func() error {
		return repo.db.QueryRowContext(ctx, query, tenant, eventType).Scan(
			&tmpl.Tenant, &tmpl.EventType, &tmpl.Subject, &tmpl.BodyTemplate, &tmpl.IsActive,
		)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("FindActive", err)
	}
	return &tmpl, nil
}
