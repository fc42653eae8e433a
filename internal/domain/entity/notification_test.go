package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelConfig_String(t *testing.T) {
	cfg := ChannelConfig{"url": "https://example.com", "port": 8080}

	assert.Equal(t, "https://example.com", cfg.String("url"))
	assert.Empty(t, cfg.String("port"))
	assert.Empty(t, cfg.String("missing"))
	assert.Empty(t, ChannelConfig(nil).String("url"))
}

func TestChannelConfig_StringMap(t *testing.T) {
	t.Run("decoded JSON object", func(t *testing.T) {
		cfg := ChannelConfig{"headers": map[string]any{"X-Team": "ops", "X-Count": 3}}
		assert.Equal(t, map[string]string{"X-Team": "ops"}, cfg.StringMap("headers"))
	})

	t.Run("typed map", func(t *testing.T) {
		cfg := ChannelConfig{"channelMap": map[string]string{"sla_breach": "#oncall"}}
		assert.Equal(t, "#oncall", cfg.StringMap("channelMap")["sla_breach"])
	})

	t.Run("wrong type", func(t *testing.T) {
		cfg := ChannelConfig{"headers": "nope"}
		assert.Nil(t, cfg.StringMap("headers"))
	})
}

func TestNotification_Validate(t *testing.T) {
	valid := &Notification{ID: "n-1", User: User{ID: "u-1"}}
	require.NoError(t, valid.Validate())

	var nilNotification *Notification
	assert.Error(t, nilNotification.Validate())

	assert.Error(t, (&Notification{User: User{ID: "u-1"}}).Validate())
	assert.Error(t, (&Notification{ID: "n-1"}).Validate())
}

func TestValidateEndpointURL(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		blockPrivate bool
		wantErr      bool
	}{
		{name: "https url", url: "https://hooks.example.com/x", wantErr: false},
		{name: "empty", url: "", wantErr: true},
		{name: "bad scheme", url: "ftp://example.com", wantErr: true},
		{name: "no host", url: "https://", wantErr: true},
		{name: "loopback allowed", url: "http://127.0.0.1:8080/hook", wantErr: false},
		{name: "loopback blocked", url: "http://127.0.0.1:8080/hook", blockPrivate: true, wantErr: true},
		{name: "private blocked", url: "http://10.1.2.3/hook", blockPrivate: true, wantErr: true},
		{name: "metadata blocked", url: "http://169.254.169.254/latest", blockPrivate: true, wantErr: true},
		{name: "public ip allowed", url: "http://8.8.8.8/hook", blockPrivate: true, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEndpointURL(tt.url, tt.blockPrivate)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
