package builtin

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/businessinsightbot/agent/capability"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
	"github.com/tanpawarit/businessinsightbot/pkg/workflow"
)

const (
	emailDraftingName = "EmailDrafting"
	maxEchoedBody     = 1000
)

// EmailDrafting posts an HTML email draft to an automation flow for delivery.
type EmailDrafting struct {
	url    string
	poster capability.Poster
}

var _ contractx.Handler = (*EmailDrafting)(nil)

func NewEmailDrafting(url string, poster capability.Poster) (*EmailDrafting, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("%w: email workflow url is not configured", contractx.ErrValidation)
	}
	if poster == nil {
		return nil, fmt.Errorf("%w: workflow poster is required", contractx.ErrValidation)
	}
	return &EmailDrafting{url: url, poster: poster}, nil
}

func (h *EmailDrafting) Descriptor() contractx.Descriptor {
	addresses := &contractx.Parameter{Type: "string"}
	return contractx.Descriptor{
		Name:        emailDraftingName,
		Description: "Drafts an email with proper formatting and sends it to a Microsoft Power Automate flow endpoint for processing and delivery.",
		Parameters: map[string]contractx.Parameter{
			"subject":     {Type: "string", Description: "The subject line of the email."},
			"to":          {Type: "string", Description: "Email address of the primary recipient."},
			"cc":          {Type: "array", Description: "Optional. List of email addresses to CC.", Items: addresses},
			"bcc":         {Type: "array", Description: "Optional. List of email addresses to BCC.", Items: addresses},
			"body":        {Type: "string", Description: "The full body of the email. This can include any content the caller desires."},
			"attachments": {Type: "array", Description: "Optional. List of attachment file names or identifiers.", Items: addresses},
			"importance": {
				Type:        "string",
				Description: "Optional. Importance level of the email.",
				Enum:        []string{"low", "normal", "high"},
			},
		},
		Required: []string{"subject", "to", "body"},
	}
}

type emailParams struct {
	Subject     string   `mapstructure:"subject"`
	To          string   `mapstructure:"to"`
	Body        string   `mapstructure:"body"`
	CC          []string `mapstructure:"cc"`
	BCC         []string `mapstructure:"bcc"`
	Attachments []string `mapstructure:"attachments"`
	Importance  string   `mapstructure:"importance"`
}

func (h *EmailDrafting) Perform(ctx context.Context, params map[string]any) (string, error) {
	var p emailParams
	if err := decode(params, &p); err != nil {
		return paramError(err), nil
	}
	for _, f := range []struct{ name, value string }{{"subject", p.Subject}, {"to", p.To}, {"body", p.Body}} {
		if strings.TrimSpace(f.value) == "" {
			return envelope(map[string]any{
				"status":  "error",
				"message": fmt.Sprintf("An error occurred: The '%s' parameter is required and cannot be empty.", f.name),
			}), nil
		}
	}
	importance := p.Importance
	if importance == "" {
		importance = "normal"
	}

	draft := map[string]any{
		"subject":     p.Subject,
		"to":          p.To,
		"cc":          nonBlank(p.CC),
		"bcc":         nonBlank(p.BCC),
		"body":        strings.ReplaceAll(p.Body, "\n", "<br>"),
		"attachments": nonBlank(p.Attachments),
		"metadata": map[string]any{
			"importance": importance,
			"isHtml":     true,
		},
	}

	resp, err := h.poster.Post(ctx, workflow.Request{URL: h.url, Method: http.MethodPost, Body: draft})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("email: workflow post failed")
		return envelope(map[string]any{
			"status":  "error",
			"message": "An error occurred: " + err.Error(),
		}), nil
	}
	if resp.OK() {
		return envelope(map[string]any{
			"status":   "success",
			"message":  "Email draft sent to Power Automate successfully",
			"response": clip(string(resp.Body), maxEchoedBody),
		}), nil
	}
	return envelope(map[string]any{
		"status":   "error",
		"message":  fmt.Sprintf("Failed to send email draft to Power Automate. Status code: %d", resp.StatusCode),
		"response": clip(string(resp.Body), maxEchoedBody),
	}), nil
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
