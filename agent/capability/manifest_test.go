package capability

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
	"github.com/tanpawarit/businessinsightbot/pkg/workflow"
)

func TestIsManifestKey(t *testing.T) {
	t.Parallel()

	for key, want := range map[string]bool{
		"agents/ping_agent.json":        true,
		"agents/ping_agent.YAML":        true,
		"multi_agents/team/x_agent.yml": true,
		"agents/ping_agent.toml":        true,
		"agents/ping.json":              false,
		"agents/ping_agent.py":          false,
		"agents/agent.json":             false,
	} {
		assert.Equal(t, want, IsManifestKey(key), key)
	}
}

func TestParseManifestFormats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  string
		data string
	}{
		{key: "a_agent.json", data: `{
			"name": "Notify",
			"description": "Send a notification",
			"parameters": {"channel": {"type": "string", "enum": ["teams", "email"]}, "user_guid": {"type": "string"}},
			"required": ["channel"],
			"identity_scoped": true,
			"endpoint": {"url": "https://flows.example.com/n", "timeout": "5s", "delivery": "qstash"}
		}`},
		{key: "a_agent.yaml", data: `
name: Notify
description: Send a notification
parameters:
  channel: {type: string, enum: [teams, email]}
  user_guid: {type: string}
required: [channel]
identity_scoped: true
endpoint:
  url: https://flows.example.com/n
  timeout: 5s
  delivery: qstash
`},
		{key: "a_agent.toml", data: `
name = "Notify"
description = "Send a notification"
required = ["channel"]
identity_scoped = true

[parameters.channel]
type = "string"
enum = ["teams", "email"]

[parameters.user_guid]
type = "string"

[endpoint]
url = "https://flows.example.com/n"
timeout = "5s"
delivery = "qstash"
`},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()
			m, err := ParseManifest(tt.key, []byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, "Notify", m.Name)
			assert.True(t, m.IdentityScoped)
			assert.Equal(t, []string{"teams", "email"}, m.Parameters["channel"].Enum)
			assert.Equal(t, workflow.DeliveryQStash, m.delivery())
			d := m.Descriptor()
			assert.True(t, d.IsRequired("channel"))
		})
	}
}

func TestParseManifestRejects(t *testing.T) {
	t.Parallel()

	for name, data := range map[string]string{
		"missing name":       `{"endpoint":{"url":"https://x"}}`,
		"missing url":        `{"name":"X"}`,
		"undeclared require": `{"name":"X","required":["y"],"endpoint":{"url":"https://x"}}`,
		"bad type":           `{"name":"X","parameters":{"y":{"type":"date"}},"endpoint":{"url":"https://x"}}`,
		"bad timeout":        `{"name":"X","endpoint":{"url":"https://x","timeout":"soon"}}`,
		"bad delivery":       `{"name":"X","endpoint":{"url":"https://x","delivery":"pigeon"}}`,
	} {
		_, err := ParseManifest("x_agent.json", []byte(data))
		assert.ErrorIs(t, err, contractx.ErrManifest, name)
	}
}

func TestWebhookHandlerPerform(t *testing.T) {
	t.Parallel()

	m := Manifest{Name: "Notify", Endpoint: Endpoint{URL: "https://flows.example.com/n", Timeout: "5s"}}

	tests := []struct {
		name   string
		poster *recordingPoster
		check  func(t *testing.T, got string)
	}{
		{
			name:   "body passthrough",
			poster: &recordingPoster{resp: workflow.Response{StatusCode: http.StatusOK, Body: []byte(`{"status":"success","message":"sent"}`)}},
			check: func(t *testing.T, got string) {
				assert.JSONEq(t, `{"status":"success","message":"sent"}`, got)
			},
		},
		{
			name:   "empty body",
			poster: &recordingPoster{resp: workflow.Response{StatusCode: http.StatusAccepted}},
			check: func(t *testing.T, got string) {
				assert.Equal(t, StatusSuccess, DecodeEnvelope(got).Status)
			},
		},
		{
			name:   "bad status",
			poster: &recordingPoster{resp: workflow.Response{StatusCode: http.StatusBadGateway, Body: []byte("down")}},
			check: func(t *testing.T, got string) {
				env := DecodeEnvelope(got)
				assert.Equal(t, StatusError, env.Status)
				assert.False(t, env.NeedsFollowUp())
			},
		},
		{
			name:   "transport failure",
			poster: &recordingPoster{err: errors.New("dial tcp: refused")},
			check: func(t *testing.T, got string) {
				assert.Contains(t, DecodeEnvelope(got).Message, "refused")
			},
		},
		{
			name:   "queued",
			poster: &recordingPoster{resp: workflow.Response{Async: true, MessageID: "msg_1"}},
			check: func(t *testing.T, got string) {
				assert.Contains(t, got, "msg_1")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h, err := NewWebhookHandler(m, tt.poster)
			require.NoError(t, err)

			got, err := h.Perform(context.Background(), map[string]any{"channel": "teams"})
			require.NoError(t, err)
			tt.check(t, got)

			require.Len(t, tt.poster.reqs, 1)
			assert.Equal(t, "teams", tt.poster.reqs[0].Body.(map[string]any)["channel"])
			assert.Equal(t, workflow.DeliveryDirect, tt.poster.reqs[0].Delivery)
		})
	}
}
