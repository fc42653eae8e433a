package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"notify-engine/internal/domain/entity"
	"notify-engine/internal/observability/logging"
	"notify-engine/internal/repository"
)

// errEmailNotSent is returned when the sender reports the message was not sent.
var errEmailNotSent = errors.New("Failed to send email notification")

// EmailMessage is what the email-sending collaborator receives.
type EmailMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// EmailSender delivers a rendered email. It returns false without an error
// when the message was not accepted, e.g. because no mail relay is configured.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) (bool, error)
}

// EmailAdapter delivers notifications by email to the notification's user.
type EmailAdapter struct {
	sender    EmailSender
	templates repository.EmailTemplateRepository
}

// NewEmailAdapter creates an EmailAdapter. templates may be nil, in which case
// the default layout is always used.
func NewEmailAdapter(sender EmailSender, templates repository.EmailTemplateRepository) *EmailAdapter {
	if sender == nil {
		sender = NewNoOpEmailSender()
	}
	return &EmailAdapter{sender: sender, templates: templates}
}

// Type returns entity.ChannelEmail.
func (a *EmailAdapter) Type() entity.ChannelType {
	return entity.ChannelEmail
}

// Deliver renders and sends the email. The result metadata carries
// {to, subject}.
func (a *EmailAdapter) Deliver(ctx context.Context, tenant string, _ entity.ChannelConfig, n *entity.Notification) entity.DeliveryResult {
	metadata, err := a.send(ctx, tenant, n)
	return finish(ctx, entity.ChannelEmail, n, metadata, err)
}

func (a *EmailAdapter) send(ctx context.Context, tenant string, n *entity.Notification) (map[string]any, error) {
	if n.User.Email == "" {
		return nil, entity.NewConfigurationError("user.email", "Recipient email not configured")
	}

	content, err := a.render(ctx, tenant, n)
	if err != nil {
		return nil, err
	}

	sent, err := a.sender.SendEmail(ctx, EmailMessage{
		To:      n.User.Email,
		Subject: content.Subject,
		HTML:    content.HTML,
		Text:    content.Text,
	})
	if err != nil {
		return nil, err
	}
	if !sent {
		return nil, errEmailNotSent
	}

	return map[string]any{"to": n.User.Email, "subject": content.Subject}, nil
}

// render uses the tenant's active template for the event type when one
// exists. A failing template lookup falls back to the default layout: the
// recipient still gets the notification, only without tenant branding.
func (a *EmailAdapter) render(ctx context.Context, tenant string, n *entity.Notification) (renderedEmail, error) {
	if a.templates != nil && n.EventType != "" {
		tmpl, err := a.templates.FindActive(ctx, tenant, n.EventType)
		switch {
		case err != nil:
			logging.FromContext(ctx).Warn("email template lookup failed, using default layout",
				slog.String("tenant", tenant),
				slog.String("event_type", n.EventType),
				slog.Any("error", err))
		case tmpl != nil && tmpl.IsActive:
			return renderCustom(tmpl, n), nil
		}
	}

	content, err := renderDefault(n)
	if err != nil {
		return renderedEmail{}, fmt.Errorf("render email: %w", err)
	}
	return content, nil
}
