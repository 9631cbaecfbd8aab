package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
	"github.com/tanpawarit/businessinsightbot/pkg/workflow"
)

// Poster delivers workflow requests.
type Poster interface {
	Post(ctx context.Context, req workflow.Request) (workflow.Response, error)
}

// WebhookHandler is the handler instantiated from a Manifest.
// It posts the sanitized parameters as JSON and hands the response back to the model.
type WebhookHandler struct {
	manifest Manifest
	poster   Poster
}

var (
	_ contractx.Handler        = (*WebhookHandler)(nil)
	_ contractx.IdentityScoped = (*WebhookHandler)(nil)
)

func NewWebhookHandler(m Manifest, poster Poster) (*WebhookHandler, error) {
	if poster == nil {
		return nil, fmt.Errorf("%w: %s: workflow poster is required", contractx.ErrManifest, m.Name)
	}
	return &WebhookHandler{manifest: m, poster: poster}, nil
}

func (h *WebhookHandler) Descriptor() contractx.Descriptor {
	return h.manifest.Descriptor()
}

func (h *WebhookHandler) IdentityScoped() bool {
	return h.manifest.IdentityScoped
}

func (h *WebhookHandler) Perform(ctx context.Context, params map[string]any) (string, error) {
	timeout, _ := h.manifest.timeout()
	resp, err := h.poster.Post(ctx, workflow.Request{
		URL:      h.manifest.Endpoint.URL,
		Method:   h.manifest.Endpoint.Method,
		Headers:  h.manifest.Endpoint.Headers,
		Body:     params,
		Delivery: h.manifest.delivery(),
		Timeout:  timeout,
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("capability", h.manifest.Name).Msg("capability: webhook delivery failed")
		return errorEnvelope(fmt.Sprintf("Failed to reach %s: %v", h.manifest.Name, err), nil), nil
	}

	if resp.Async {
		return envelope(map[string]any{
			"status":     StatusSuccess,
			"message":    fmt.Sprintf("%s request queued for delivery", h.manifest.Name),
			"message_id": resp.MessageID,
		}), nil
	}
	if !resp.OK() {
		return errorEnvelope(
			fmt.Sprintf("%s endpoint returned status %d", h.manifest.Name, resp.StatusCode),
			map[string]any{"response": string(resp.Body)},
		), nil
	}

	body := strings.TrimSpace(string(resp.Body))
	if body == "" {
		return envelope(map[string]any{
			"status":  StatusSuccess,
			"message": fmt.Sprintf("%s completed", h.manifest.Name),
		}), nil
	}
	return body, nil
}

func errorEnvelope(message string, extra map[string]any) string {
	out := map[string]any{"status": StatusError, "message": message}
	for k, v := range extra {
		out[k] = v
	}
	return envelope(out)
}

func envelope(v map[string]any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"status":"error","message":%q}`, err.Error())
	}
	return string(raw)
}
