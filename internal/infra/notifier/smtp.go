package notifier

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"notify-engine/internal/resilience/circuitbreaker"
)

// sendMailFunc matches smtp.SendMail; tests replace it.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPConfig contains the mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether a relay is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// SMTPSender sends multipart (HTML + text) emails through an SMTP relay.
type SMTPSender struct {
	config   SMTPConfig
	sendMail sendMailFunc
	breaker  *circuitbreaker.CircuitBreaker
	now      func() time.Time
}

// NewSMTPSender creates an SMTPSender for config.
func NewSMTPSender(config SMTPConfig) *SMTPSender {
	cbCfg := circuitbreaker.SMTPConfig()
	cbCfg.IsSuccessful = breakerSuccess
	return &SMTPSender{
		config:   config,
		sendMail: smtp.SendMail,
		breaker:  circuitbreaker.New(cbCfg),
		now:      time.Now,
	}
}

// SendEmail implements EmailSender.
func (s *SMTPSender) SendEmail(ctx context.Context, msg EmailMessage) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("send email: %w", err)
	}

	raw, err := s.buildMessage(msg)
	if err != nil {
		return false, err
	}

	addr := s.config.Host + ":" + strconv.Itoa(s.config.Port)
	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	err = s.breaker.Run(func() error {
		return s.sendMail(addr, auth, s.config.From, []string{msg.To}, raw)
	})
	if err != nil {
		return false, fmt.Errorf("smtp send: %w", err)
	}
	return true, nil
}

// buildMessage renders an RFC 5322 message with a multipart/alternative body.
func (s *SMTPSender) buildMessage(msg EmailMessage) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	parts := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", msg.Text},
		{"text/html; charset=UTF-8", msg.HTML},
	}
	for _, p := range parts {
		if p.content == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, fmt.Errorf("create mime part: %w", err)
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(p.content)); err != nil {
			return nil, fmt.Errorf("write mime part: %w", err)
		}
		if err := qp.Close(); err != nil {
			return nil, fmt.Errorf("close mime part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	var out bytes.Buffer
	headers := []string{
		"From: " + s.config.From,
		"To: " + sanitizeHeader(msg.To),
		"Subject: " + mime.QEncoding.Encode("utf-8", sanitizeHeader(msg.Subject)),
		"Date: " + s.now().UTC().Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary=" + mw.Boundary(),
	}
	out.WriteString(strings.Join(headers, "\r\n"))
	out.WriteString("\r\n\r\n")
	out.Write(body.Bytes())

	return out.Bytes(), nil
}

// sanitizeHeader strips CR/LF so values cannot inject extra headers.
func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", "", "\n", " ").Replace(v)
}
