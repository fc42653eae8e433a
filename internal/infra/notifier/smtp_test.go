package notifier

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPSender_SendEmail(t *testing.T) {
	sender := NewSMTPSender(SMTPConfig{
		Host:     "mail.example.com",
		Port:     587,
		Username: "user",
		Password: "pass",
		From:     "alerts@example.com",
	})
	sender.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }

	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	sender.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, string(msg)
		return nil
	}

	ok, err := sender.SendEmail(context.Background(), EmailMessage{
		To:      "jane@example.com",
		Subject: "Ticket\r\nBcc: evil@example.com",
		HTML:    "<p>Hello</p>",
		Text:    "Hello",
	})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "mail.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "alerts@example.com", gotFrom)
	assert.Equal(t, []string{"jane@example.com"}, gotTo)

	assert.Contains(t, gotMsg, "Subject: Ticket Bcc: evil@example.com\r\n")
	assert.NotContains(t, gotMsg, "\r\nBcc:")
	assert.Contains(t, gotMsg, "Date: Sun, 01 Mar 2026 09:30:00 +0000")
	assert.Contains(t, gotMsg, "Content-Type: multipart/alternative; boundary=")
	assert.Contains(t, gotMsg, "text/plain; charset=UTF-8")
	assert.Contains(t, gotMsg, "text/html; charset=UTF-8")
	assert.True(t, strings.Contains(gotMsg, "<p>Hello</p>"))
}

func TestSMTPSender_SendEmail_Error(t *testing.T) {
	sender := NewSMTPSender(SMTPConfig{Host: "mail.example.com", Port: 25, From: "alerts@example.com"})
	sender.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("421 service not available")
	}

	ok, err := sender.SendEmail(context.Background(), EmailMessage{To: "jane@example.com", Subject: "s", Text: "t"})

	assert.False(t, ok)
	assert.EqualError(t, err, "smtp send: 421 service not available")
}

func TestSMTPSender_SendEmail_CanceledContext(t *testing.T) {
	sender := NewSMTPSender(SMTPConfig{Host: "mail.example.com", Port: 25, From: "alerts@example.com"})
	calls := 0
	sender.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		calls++
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := sender.SendEmail(ctx, EmailMessage{To: "jane@example.com"})

	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestSMTPConfig_Enabled(t *testing.T) {
	assert.True(t, SMTPConfig{Host: "h", From: "f"}.Enabled())
	assert.False(t, SMTPConfig{Host: "h"}.Enabled())
	assert.False(t, SMTPConfig{}.Enabled())
}
