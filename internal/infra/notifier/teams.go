package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"notify-engine/internal/domain/entity"
)

// TeamsAdapter posts an Adaptive Card to a Teams incoming webhook.
//
// Channel config:
//   - webhookUrl: incoming webhook URL (required)
type TeamsAdapter struct {
	httpClient   *http.Client
	blockPrivate bool
}

// NewTeamsAdapter creates a TeamsAdapter. When blockPrivate is set, webhook
// URLs resolving to private networks are rejected.
func NewTeamsAdapter(httpClient *http.Client, blockPrivate bool) *TeamsAdapter {
	return &TeamsAdapter{httpClient: httpClient, blockPrivate: blockPrivate}
}

// TeamsMessage is the incoming-webhook envelope carrying one Adaptive Card.
type TeamsMessage struct {
	Type        string            `json:"type"`
	Attachments []TeamsAttachment `json:"attachments"`
}

// TeamsAttachment wraps the card content.
type TeamsAttachment struct {
	ContentType string       `json:"contentType"`
	ContentURL  *string      `json:"contentUrl"`
	Content     AdaptiveCard `json:"content"`
}

// AdaptiveCard is the card body.
type AdaptiveCard struct {
	Schema  string         `json:"$schema"`
	Type    string         `json:"type"`
	Version string         `json:"version"`
	Body    []AdaptiveItem `json:"body"`
}

// AdaptiveItem is a TextBlock or FactSet element.
type AdaptiveItem struct {
	Type   string         `json:"type"`
	Text   string         `json:"text,omitempty"`
	Weight string         `json:"weight,omitempty"`
	Size   string         `json:"size,omitempty"`
	Wrap   bool           `json:"wrap,omitempty"`
	Facts  []AdaptiveFact `json:"facts,omitempty"`
}

// AdaptiveFact is one title/value row of a FactSet.
type AdaptiveFact struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// Type returns entity.ChannelTeams.
func (a *TeamsAdapter) Type() entity.ChannelType {
	return entity.ChannelTeams
}

// Deliver posts the card. Result metadata carries {status}.
func (a *TeamsAdapter) Deliver(ctx context.Context, tenant string, cfg entity.ChannelConfig, n *entity.Notification) entity.DeliveryResult {
	metadata, err := a.send(ctx, cfg, n)
	return finish(ctx, entity.ChannelTeams, n, metadata, err)
}

func (a *TeamsAdapter) send(ctx context.Context, cfg entity.ChannelConfig, n *entity.Notification) (map[string]any, error) {
	webhookURL := cfg.String("webhookUrl")
	if webhookURL == "" {
		return nil, entity.NewConfigurationError("webhookUrl", "Teams webhook URL not configured")
	}
	if err := entity.ValidateEndpointURL(webhookURL, a.blockPrivate); err != nil {
		return nil, entity.NewConfigurationError("webhookUrl", fmt.Sprintf("Teams webhook URL invalid: %v", err))
	}

	payload, err := json.Marshal(buildTeamsMessage(n))
	if err != nil {
		return nil, fmt.Errorf("marshal teams card: %w", err)
	}

	resp, err := postJSON(ctx, a.httpClient, "Teams", webhookURL, payload, nil)
	if err != nil {
		return nil, err
	}

	return map[string]any{"status": resp.StatusCode}, nil
}

// buildTeamsMessage builds the card: a bold header, the body text and a fact
// set describing the event.
func buildTeamsMessage(n *entity.Notification) TeamsMessage {
	facts := []AdaptiveFact{{Title: "Event", Value: n.EventType}}
	if n.EntityType != "" {
		facts = append(facts, AdaptiveFact{Title: n.EntityType, Value: n.EntityID})
	}
	if n.User.ID != "" {
		facts = append(facts, AdaptiveFact{Title: "Recipient", Value: humanizeName(n.User)})
	}

	return TeamsMessage{
		Type: "message",
		Attachments: []TeamsAttachment{{
			ContentType: "application/vnd.microsoft.card.adaptive",
			Content: AdaptiveCard{
				Schema:  "http://adaptivecards.io/schemas/adaptive-card.json",
				Type:    "AdaptiveCard",
				Version: "1.4",
				Body: []AdaptiveItem{
					{Type: "TextBlock", Text: n.Title, Weight: "Bolder", Size: "Medium", Wrap: true},
					{Type: "TextBlock", Text: n.Body, Wrap: true},
					{Type: "FactSet", Facts: facts},
				},
			},
		}},
	}
}
