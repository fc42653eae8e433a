package main

import (
	"context"
	"crypto/tls"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notify-engine/internal/config"
	"notify-engine/internal/domain/entity"
	"notify-engine/internal/usecase/notify"
)

func testEngineConfig() *config.EngineConfig {
	return &config.EngineConfig{
		HTTP:          config.HTTPConfig{Timeout: 5 * time.Second, BlockPrivateNetworks: true},
		SMTP:          config.SMTPConfig{Port: 587},
		Twilio:        config.TwilioConfig{RequestsPerSecond: 10, Burst: 10},
		Slack:         config.SlackConfig{RequestsPerSecond: 1, Burst: 5},
		PagerDuty:     config.PagerDutyConfig{MaxAttempts: 3, RequestsPerSecond: 2, Burst: 10},
		Webhook:       config.WebhookConfig{SignatureHeader: "X-Notify-Signature"},
		ChannelSource: config.ChannelSourcePostgres,
	}
}

func TestBuildAdapters_RegistersEveryChannelType(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := createHTTPClient(time.Second)

	registry := notify.NewRegistry(buildAdapters(logger, testEngineConfig(), client, nil)...)

	assert.ElementsMatch(t, []entity.ChannelType{
		entity.ChannelEmail,
		entity.ChannelSlack,
		entity.ChannelTeams,
		entity.ChannelPagerDuty,
		entity.ChannelWebhook,
		entity.ChannelSMS,
		entity.ChannelInApp,
	}, registry.Types())
}

func TestCreateHTTPClient(t *testing.T) {
	client := createHTTPClient(7 * time.Second)

	assert.Equal(t, 7*time.Second, client.Timeout)
	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, uint16(tls.VersionTLS12), transport.TLSClientConfig.MinVersion)
}

func TestNewChannelResolver_Postgres(t *testing.T) {
	resolver, err := newChannelResolver(testEngineConfig(), nil)

	require.NoError(t, err)
	assert.NotNil(t, resolver)
}

func TestNewChannelResolver_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels.yaml")
	data := []byte(`channels:
  - tenant: acme
    userId: u-1
    id: ch-email
    type: email
    config:
      email: jane@example.com
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg := testEngineConfig()
	cfg.ChannelSource = config.ChannelSourceFile
	cfg.ChannelFile = path

	resolver, err := newChannelResolver(cfg, nil)
	require.NoError(t, err)

	channels, err := resolver.ResolveChannels(context.Background(), "acme", "u-1")
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, "ch-email", channels[0].ID)
	assert.Equal(t, entity.ChannelEmail, channels[0].Type)
}

func TestNewChannelResolver_FileMissing(t *testing.T) {
	cfg := testEngineConfig()
	cfg.ChannelSource = config.ChannelSourceFile
	cfg.ChannelFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := newChannelResolver(cfg, nil)

	assert.Error(t, err)
}
