package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notify-engine/internal/domain/entity"
)

type fakeEmailSender struct {
	sent   []EmailMessage
	accept bool
	err    error
}

func (f *fakeEmailSender) SendEmail(_ context.Context, msg EmailMessage) (bool, error) {
	f.sent = append(f.sent, msg)
	return f.accept, f.err
}

type fakeTemplateRepo struct {
	tmpl  *entity.EmailTemplate
	err   error
	calls int
}

func (f *fakeTemplateRepo) FindActive(_ context.Context, tenant, eventType string) (*entity.EmailTemplate, error) {
	f.calls++
	return f.tmpl, f.err
}

func TestEmailAdapter_Deliver_DefaultLayout(t *testing.T) {
	sender := &fakeEmailSender{accept: true}
	adapter := NewEmailAdapter(sender, &fakeTemplateRepo{})

	result := adapter.Deliver(context.Background(), "acme", nil, testNotification())

	require.True(t, result.Success, result.Error)
	assert.Equal(t, map[string]any{
		"to":      "jane.doe@example.com",
		"subject": "Ticket INC-42 assigned to you",
	}, result.Metadata)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "jane.doe@example.com", msg.To)
	assert.Contains(t, msg.HTML, "<h2 style=\"margin-top:0\">Ticket INC-42 assigned to you</h2>")
	assert.Contains(t, msg.HTML, "Hi Jane Doe,")
	assert.Contains(t, msg.Text, "Printer on floor 3 is on fire.")
}

func TestEmailAdapter_Deliver_CustomTemplate(t *testing.T) {
	sender := &fakeEmailSender{accept: true}
	repo := &fakeTemplateRepo{tmpl: &entity.EmailTemplate{
		Tenant:       "acme",
		EventType:    "ticket_assigned",
		Subject:      "[{{priority}}] {{title}}",
		BodyTemplate: "<p>Hello {{userName}}, {{entityId}} needs you. {{unknown}}</p>",
		IsActive:     true,
	}}
	adapter := NewEmailAdapter(sender, repo)

	n := testNotification()
	n.Metadata["priority"] = "<P1>"
	result := adapter.Deliver(context.Background(), "acme", nil, n)

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "[<P1>] Ticket INC-42 assigned to you", result.Metadata["subject"])

	msg := sender.sent[0]
	assert.Equal(t, "<p>Hello Jane Doe, INC-42 needs you. {{unknown}}</p>", msg.HTML)
	assert.Equal(t, "Hello Jane Doe, INC-42 needs you. {{unknown}}", msg.Text)
}

func TestEmailAdapter_Deliver_InactiveTemplateUsesDefault(t *testing.T) {
	sender := &fakeEmailSender{accept: true}
	repo := &fakeTemplateRepo{tmpl: &entity.EmailTemplate{Subject: "custom", IsActive: false}}
	adapter := NewEmailAdapter(sender, repo)

	result := adapter.Deliver(context.Background(), "acme", nil, testNotification())

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "Ticket INC-42 assigned to you", result.Metadata["subject"])
}

func TestEmailAdapter_Deliver_TemplateLookupFailure(t *testing.T) {
	sender := &fakeEmailSender{accept: true}
	repo := &fakeTemplateRepo{err: errors.New("connection refused")}
	adapter := NewEmailAdapter(sender, repo)

	result := adapter.Deliver(context.Background(), "acme", nil, testNotification())

	require.True(t, result.Success, result.Error)
	assert.Equal(t, 1, repo.calls)
}

func TestEmailAdapter_Deliver_Failures(t *testing.T) {
	tests := []struct {
		name    string
		sender  EmailSender
		mutate  func(n *entity.Notification)
		wantErr string
	}{
		{
			name:    "sender returns false",
			sender:  &fakeEmailSender{accept: false},
			wantErr: "Failed to send email notification",
		},
		{
			name:    "sender error",
			sender:  &fakeEmailSender{err: errors.New("smtp send: 421 service not available")},
			wantErr: "smtp send: 421 service not available",
		},
		{
			name:    "no sender configured",
			sender:  nil,
			wantErr: "Failed to send email notification",
		},
		{
			name:    "no recipient",
			sender:  &fakeEmailSender{accept: true},
			mutate:  func(n *entity.Notification) { n.User.Email = "" },
			wantErr: "Recipient email not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := testNotification()
			if tt.mutate != nil {
				tt.mutate(n)
			}
			adapter := NewEmailAdapter(tt.sender, nil)

			result := adapter.Deliver(context.Background(), "acme", nil, n)

			assert.Equal(t, entity.DeliveryResult{ChannelType: entity.ChannelEmail, Error: tt.wantErr}, result)
		})
	}
}

func TestHumanizeName(t *testing.T) {
	tests := []struct {
		user entity.User
		want string
	}{
		{entity.User{Name: "jane.doe"}, "Jane Doe"},
		{entity.User{Name: "Jane Doe"}, "Jane Doe"},
		{entity.User{Email: "john_smith@example.com"}, "John Smith"},
		{entity.User{Name: "  ", Email: "ops-team+alerts@example.com"}, "Ops Team Alerts"},
		{entity.User{}, "there"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, humanizeName(tt.user))
	}
}

func TestRenderDefault_EscapesHTML(t *testing.T) {
	n := testNotification()
	n.Title = "<script>alert(1)</script>"

	content, err := renderDefault(n)

	require.NoError(t, err)
	assert.False(t, strings.Contains(content.HTML, "<script>"))
	assert.Equal(t, n.Title, content.Subject)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "3", formatValue(float64(3)))
	assert.Equal(t, "2.5", formatValue(2.5))
	assert.Equal(t, "a, b", formatValue([]any{"a", "b"}))
	assert.Equal(t, "x: 1, y: true", formatValue(map[string]any{"y": true, "x": float64(1)}))
	assert.Equal(t, "7", formatValue(7))
	assert.Equal(t, "", formatValue(nil))
}
