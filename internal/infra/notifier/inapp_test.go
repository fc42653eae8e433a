package notifier

import (
	"context"
	"testing"

	"notify-engine/internal/domain/entity"
)

func TestInAppAdapter_Deliver(t *testing.T) {
	adapter := NewInAppAdapter()

	result := adapter.Deliver(context.Background(), "acme", nil, testNotification())

	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.ChannelType != entity.ChannelInApp {
		t.Errorf("expected channel type %q, got %q", entity.ChannelInApp, result.ChannelType)
	}
	if result.Error != "" {
		t.Errorf("expected empty error, got %q", result.Error)
	}
}
