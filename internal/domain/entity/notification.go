// Package entity defines the core domain entities of the delivery engine.
// It contains the notification handed to the engine, the channel records
// describing where a user wants to be notified, and the typed result produced
// for every delivery attempt.
package entity

// ChannelType identifies a delivery channel kind.
type ChannelType string

// Known channel types. Any other string is treated as unsupported.
const (
	ChannelEmail     ChannelType = "email"
	ChannelSlack     ChannelType = "slack"
	ChannelTeams     ChannelType = "teams"
	ChannelPagerDuty ChannelType = "pagerduty"
	ChannelWebhook   ChannelType = "webhook"
	ChannelSMS       ChannelType = "sms"
	ChannelInApp     ChannelType = "in_app"
)

// User is the recipient of a notification.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Notification is an already-composed notification. It is read-only for the
// duration of a delivery.
type Notification struct {
	ID         string         `json:"id"`
	EventType  string         `json:"eventType"`
	Title      string         `json:"title"`
	Body       string         `json:"body"`
	EntityType string         `json:"entityType,omitempty"`
	EntityID   string         `json:"entityId,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	User       User           `json:"user"`
}

// ChannelConfig is the opaque per-channel configuration. Its schema depends on
// the channel type.
type ChannelConfig map[string]any

// String returns the string value stored under key, or "" when the key is
// absent or not a string.
func (c ChannelConfig) String(key string) string {
	if c == nil {
		return ""
	}
	s, _ := c[key].(string)
	return s
}

// StringMap returns the map stored under key with every non-string value
// dropped. It accepts both map[string]string and decoded JSON/YAML objects.
func (c ChannelConfig) StringMap(key string) map[string]string {
	if c == nil {
		return nil
	}
	switch v := c[key].(type) {
	case map[string]string:
		return v
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, val := range v {
			if s, ok := val.(string); ok {
				out[k] = s
			}
		}
		return out
	default:
		return nil
	}
}

// Channel is an enabled delivery destination of a user, owned by the
// configuration store.
type Channel struct {
	ID        string        `json:"id" yaml:"id"`
	Type      ChannelType   `json:"type" yaml:"type"`
	Config    ChannelConfig `json:"config" yaml:"config"`
	IsDefault bool          `json:"isDefault,omitempty" yaml:"isDefault"`
}

// DeliveryResult is the outcome of one channel attempt. Error is non-empty if
// and only if Success is false.
type DeliveryResult struct {
	Success     bool           `json:"success"`
	ChannelType ChannelType    `json:"channelType"`
	Error       string         `json:"error,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Succeeded builds a successful result.
func Succeeded(channelType ChannelType, metadata map[string]any) DeliveryResult {
	return DeliveryResult{Success: true, ChannelType: channelType, Metadata: metadata}
}

// Failed builds a failed result from err. A nil error still yields a failure
// with a generic message so that the Success/Error invariant holds.
func Failed(channelType ChannelType, err error) DeliveryResult {
	msg := "delivery failed"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return DeliveryResult{Success: false, ChannelType: channelType, Error: msg}
}

// DeliveryStatus values persisted in the audit trail.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// DeliveryStatus is one audit row for a (notification, channel) outcome.
type DeliveryStatus struct {
	NotificationID string
	ChannelID      string
	Status         string
	Error          string
}

// EmailTemplate is a tenant-specific template for an event type.
// Subject and BodyTemplate may contain {{token}} placeholders.
type EmailTemplate struct {
	Tenant       string
	EventType    string
	Subject      string
	BodyTemplate string
	IsActive     bool
}
