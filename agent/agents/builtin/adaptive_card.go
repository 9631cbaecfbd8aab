package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/businessinsightbot/agent/capability"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
	"github.com/tanpawarit/businessinsightbot/pkg/workflow"
)

const (
	adaptiveCardName    = "AdaptiveCardPowerAutomate"
	adaptiveCardSchema  = "http://adaptivecards.io/schemas/adaptive-card.json"
	adaptiveCardVersion = "1.4"
	maxEchoedError      = 500
)

// AdaptiveCard sends a caller-built adaptive card to an automation flow.
type AdaptiveCard struct {
	url    string
	poster capability.Poster
}

var _ contractx.Handler = (*AdaptiveCard)(nil)

func NewAdaptiveCard(url string, poster capability.Poster) (*AdaptiveCard, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("%w: adaptive card workflow url is not configured", contractx.ErrValidation)
	}
	if poster == nil {
		return nil, fmt.Errorf("%w: workflow poster is required", contractx.ErrValidation)
	}
	return &AdaptiveCard{url: url, poster: poster}, nil
}

func (h *AdaptiveCard) Descriptor() contractx.Descriptor {
	return contractx.Descriptor{
		Name:        adaptiveCardName,
		Description: "Sends fully formed adaptive cards to Power Automate HTTP endpoints. The caller provides the complete adaptive card JSON and all necessary parameters for posting.",
		Parameters: map[string]contractx.Parameter{
			"adaptive_card_json": {Type: "string", Description: "Complete adaptive card JSON as a string, including schema, body and actions. Must be valid adaptive card schema v1.4 or compatible."},
			"recipient":          {Type: "string", Description: "Email address or identifier of the person who should receive the adaptive card."},
			"post_as":            {Type: "string", Description: "Sender identity for the card, e.g. 'Flow bot'.", Default: "Power Virtual Agents (Preview)"},
			"post_in":            {Type: "string", Description: "Where to post the card, e.g. 'Channel' or 'Group chat'.", Default: "Chat with bot"},
			"update_message":     {Type: "string", Description: "Status message shown after the card is posted or updated."},
			"bot_name":           {Type: "string", Description: "Name of the bot that should handle this card.", Default: "Agent"},
			"wait_for_response":  {Type: "boolean", Description: "Whether the flow should wait for a user response. True for approvals, false for notifications.", Default: false},
			"card_title":         {Type: "string", Description: "Optional title for tracking the card in flow runs."},
			"card_category":      {Type: "string", Description: "Optional category such as approval, notification, task or alert."},
			"priority_level": {
				Type:        "string",
				Description: "Priority level used for routing urgency.",
				Enum:        []string{"low", "medium", "high", "urgent"},
				Default:     "medium",
			},
			"expires_at":          {Type: "string", Description: "Optional ISO expiration time for the card."},
			"reference_id":        {Type: "string", Description: "Optional reference id for correlating the card across systems."},
			"additional_metadata": {Type: "string", Description: "Optional extra JSON metadata as a string."},
		},
		Required: []string{"adaptive_card_json", "recipient"},
	}
}

type adaptiveCardParams struct {
	CardJSON           string `mapstructure:"adaptive_card_json"`
	Recipient          string `mapstructure:"recipient"`
	PostAs             string `mapstructure:"post_as"`
	PostIn             string `mapstructure:"post_in"`
	UpdateMessage      string `mapstructure:"update_message"`
	BotName            string `mapstructure:"bot_name"`
	WaitForResponse    bool   `mapstructure:"wait_for_response"`
	CardTitle          string `mapstructure:"card_title"`
	CardCategory       string `mapstructure:"card_category"`
	PriorityLevel      string `mapstructure:"priority_level"`
	ExpiresAt          string `mapstructure:"expires_at"`
	ReferenceID        string `mapstructure:"reference_id"`
	AdditionalMetadata string `mapstructure:"additional_metadata"`
}

func (p *adaptiveCardParams) applyDefaults() {
	orDefault := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	orDefault(&p.PostAs, "Power Virtual Agents (Preview)")
	orDefault(&p.PostIn, "Chat with bot")
	orDefault(&p.UpdateMessage, "Card sent successfully")
	orDefault(&p.BotName, "Agent")
	orDefault(&p.PriorityLevel, "medium")
}

func (h *AdaptiveCard) Perform(ctx context.Context, params map[string]any) (string, error) {
	var p adaptiveCardParams
	if err := decode(params, &p); err != nil {
		return "Error: " + err.Error(), nil
	}
	p.applyDefaults()

	if strings.TrimSpace(p.CardJSON) == "" {
		return "Error: adaptive_card_json is required - must provide the complete adaptive card JSON as a string", nil
	}
	if strings.TrimSpace(p.Recipient) == "" {
		return "Error: recipient is required - must provide email address or identifier for card recipient", nil
	}

	card, msg := parseCard(p.CardJSON)
	if msg != "" {
		return msg, nil
	}

	payload := map[string]any{
		"adaptiveCard":    card,
		"recipient":       p.Recipient,
		"postAs":          p.PostAs,
		"postIn":          p.PostIn,
		"updateMessage":   p.UpdateMessage,
		"bot":             p.BotName,
		"waitForResponse": p.WaitForResponse,
		"priorityLevel":   p.PriorityLevel,
	}
	optional := map[string]string{
		"cardTitle":    p.CardTitle,
		"cardCategory": p.CardCategory,
		"expiresAt":    p.ExpiresAt,
		"referenceId":  p.ReferenceID,
	}
	for k, v := range optional {
		if v != "" {
			payload[k] = v
		}
	}
	if p.AdditionalMetadata != "" {
		var meta any
		if err := json.Unmarshal([]byte(p.AdditionalMetadata), &meta); err != nil {
			meta = map[string]any{"rawData": p.AdditionalMetadata}
		}
		payload["additionalMetadata"] = meta
	}

	log.Ctx(ctx).Info().
		Str("recipient", p.Recipient).
		Str("category", p.CardCategory).
		Bool("wait_for_response", p.WaitForResponse).
		Msg("adaptive card: sending")

	resp, err := h.poster.Post(ctx, workflow.Request{
		URL:     h.url,
		Method:  http.MethodPost,
		Headers: map[string]string{"Accept": "application/json"},
		Body:    payload,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "Error: Request to Power Automate timed out. Please check endpoint availability and try again.", nil
		}
		return "Error: HTTP request failed - " + err.Error(), nil
	}

	if !resp.OK() {
		out := fmt.Sprintf("Failed to send adaptive card. HTTP Status: %d", resp.StatusCode)
		if len(resp.Body) > 0 {
			out += ". Response: " + clip(string(resp.Body), maxEchoedError) + "..."
		}
		return out, nil
	}

	var b strings.Builder
	b.WriteString("Successfully sent adaptive card to Power Automate")
	if p.CardTitle != "" {
		b.WriteString(" - " + p.CardTitle)
	}
	if p.ReferenceID != "" {
		b.WriteString(" (Reference: " + p.ReferenceID + ")")
	}
	fmt.Fprintf(&b, ". Recipient: %s. HTTP Status: %d", p.Recipient, resp.StatusCode)
	if p.WaitForResponse {
		b.WriteString(". Flow is waiting for user response.")
	}
	return b.String(), nil
}

// parseCard validates the card JSON and fills in schema and version defaults.
// A non-empty message means the card was rejected.
func parseCard(raw string) (map[string]any, string) {
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Sprintf("Error: Invalid JSON in adaptive_card_json - %v. Please ensure the adaptive card JSON is properly formatted.", err)
	}
	card, ok := decoded.(map[string]any)
	if !ok {
		return nil, "Error: adaptive_card_json must be a JSON object, not an array or primitive value"
	}
	if card["type"] != "AdaptiveCard" {
		return nil, "Error: adaptive_card_json must have 'type': 'AdaptiveCard' property"
	}
	if _, ok := card["body"]; !ok {
		return nil, "Error: adaptive_card_json must have a 'body' property with card content"
	}
	if _, ok := card["$schema"]; !ok {
		card["$schema"] = adaptiveCardSchema
	}
	if _, ok := card["version"]; !ok {
		card["version"] = adaptiveCardVersion
	}
	return card, ""
}
