package builtin

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanpawarit/businessinsightbot/agent/capability"
	"github.com/tanpawarit/businessinsightbot/agent/memory"
	"github.com/tanpawarit/businessinsightbot/agent/storage"
	"github.com/tanpawarit/businessinsightbot/pkg/workflow"
)

const testToken = "3f2504e0-4f89-11d3-9a0c-0305e82c3301"

type recordingPoster struct {
	reqs []workflow.Request
	resp workflow.Response
	err  error
}

func (p *recordingPoster) Post(_ context.Context, req workflow.Request) (workflow.Response, error) {
	p.reqs = append(p.reqs, req)
	return p.resp, p.err
}

func newMemoryStore(t *testing.T) (*memory.Store, storage.Backend) {
	t.Helper()
	backend := storage.NewFSBackendOn(afero.NewMemMapFs())
	store, err := memory.NewStore(backend)
	require.NoError(t, err)
	return store, backend
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 17, 14, 3, 9, 0, time.UTC)
}

func TestManageThenRecall(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, backend := newMemoryStore(t)
	ids := []string{"id-1", "id-2"}
	manage, err := NewManageMemory(store, fixedClock, func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	})
	require.NoError(t, err)

	got, err := manage.Perform(ctx, map[string]any{
		"memory_type": "task",
		"content":     "call Alice",
		"importance":  "4",
		"tags":        "",
		"user_guid":   testToken,
	})
	require.NoError(t, err)
	assert.Equal(t, `Successfully stored task memory for user `+testToken+`: "call Alice"`, got)

	raw, err := backend.Get(ctx, "memory/"+testToken+"/user_memory.json")
	require.NoError(t, err)
	doc, err := memory.ParseDocument(raw)
	require.NoError(t, err)
	records := doc.Records()
	require.Len(t, records, 1)
	assert.Equal(t, memory.Record{
		ID:             "id-1",
		ConversationID: testToken,
		SessionID:      "current",
		Message:        "call Alice",
		Mood:           "neutral",
		Theme:          "task",
		Date:           "2024-05-17",
		Time:           "14:03:09",
	}, records[0])

	recall, err := NewContextMemory(store)
	require.NoError(t, err)

	full, err := recall.Perform(ctx, map[string]any{"user_guid": testToken})
	require.NoError(t, err)
	assert.Equal(t, "All memories for user ID "+testToken+":\n• call Alice (Theme: task, Recorded: 2024-05-17 14:03:09)", full)

	filtered, err := recall.Perform(ctx, map[string]any{"user_guid": testToken, "keywords": []any{"alice", ""}})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filtered, "Here's what I remember for user ID "+testToken+":"))
}

func TestManageMemoryWithoutContent(t *testing.T) {
	t.Parallel()

	store, _ := newMemoryStore(t)
	manage, err := NewManageMemory(store, fixedClock, func() string { return "x" })
	require.NoError(t, err)

	got, err := manage.Perform(context.Background(), map[string]any{"memory_type": "fact", "content": ""})
	require.NoError(t, err)
	assert.Equal(t, "Error: No content provided for memory storage.", got)
}

func TestManageMemoryInvalidGUIDUsesShared(t *testing.T) {
	t.Parallel()

	store, backend := newMemoryStore(t)
	manage, err := NewManageMemory(store, fixedClock, func() string { return "x" })
	require.NoError(t, err)

	got, err := manage.Perform(context.Background(), map[string]any{"content": "likes tea", "user_guid": "bogus"})
	require.NoError(t, err)
	assert.Equal(t, `Successfully stored fact memory in shared memory: "likes tea"`, got)

	_, err = backend.Get(context.Background(), memory.SharedKey)
	require.NoError(t, err)
}

func TestEmailDrafting(t *testing.T) {
	t.Parallel()

	poster := &recordingPoster{resp: workflow.Response{StatusCode: http.StatusAccepted, Body: []byte("ok")}}
	h, err := NewEmailDrafting("https://flows.example.com/email", poster)
	require.NoError(t, err)

	got, err := h.Perform(context.Background(), map[string]any{
		"subject": "Q3",
		"to":      "a@example.com",
		"body":    "line1\nline2",
		"cc":      []any{"b@example.com"},
	})
	require.NoError(t, err)
	env := capability.DecodeEnvelope(got)
	assert.Equal(t, capability.StatusSuccess, env.Status)

	require.Len(t, poster.reqs, 1)
	body := poster.reqs[0].Body.(map[string]any)
	assert.Equal(t, "line1<br>line2", body["body"])
	assert.Equal(t, []string{"b@example.com"}, body["cc"])
	assert.Equal(t, map[string]any{"importance": "normal", "isHtml": true}, body["metadata"])

	missing, err := h.Perform(context.Background(), map[string]any{"subject": "", "to": "a", "body": "b"})
	require.NoError(t, err)
	assert.Contains(t, capability.DecodeEnvelope(missing).Message, "'subject'")
}

func TestAdaptiveCard(t *testing.T) {
	t.Parallel()

	poster := &recordingPoster{resp: workflow.Response{StatusCode: http.StatusOK}}
	h, err := NewAdaptiveCard("https://flows.example.com/card", poster)
	require.NoError(t, err)

	tests := []struct {
		name string
		card string
		want string
	}{
		{name: "invalid json", card: "{", want: "Error: Invalid JSON in adaptive_card_json"},
		{name: "array", card: "[]", want: "Error: adaptive_card_json must be a JSON object"},
		{name: "wrong type", card: `{"type":"Card","body":[]}`, want: "Error: adaptive_card_json must have 'type'"},
		{name: "no body", card: `{"type":"AdaptiveCard"}`, want: "Error: adaptive_card_json must have a 'body'"},
	}
	for _, tt := range tests {
		got, err := h.Perform(context.Background(), map[string]any{"adaptive_card_json": tt.card, "recipient": "a@example.com"})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got, tt.want), "%s: %s", tt.name, got)
	}
	assert.Empty(t, poster.reqs)

	got, err := h.Perform(context.Background(), map[string]any{
		"adaptive_card_json":  `{"type":"AdaptiveCard","body":[]}`,
		"recipient":           "a@example.com",
		"card_title":          "Approval",
		"reference_id":        "REQ-1",
		"wait_for_response":   "true",
		"additional_metadata": "not json",
	})
	require.NoError(t, err)
	assert.Equal(t, "Successfully sent adaptive card to Power Automate - Approval (Reference: REQ-1). Recipient: a@example.com. HTTP Status: 200. Flow is waiting for user response.", got)

	require.Len(t, poster.reqs, 1)
	payload := poster.reqs[0].Body.(map[string]any)
	card := payload["adaptiveCard"].(map[string]any)
	assert.Equal(t, "1.4", card["version"])
	assert.Equal(t, adaptiveCardSchema, card["$schema"])
	assert.Equal(t, map[string]any{"rawData": "not json"}, payload["additionalMetadata"])
	assert.Equal(t, "Chat with bot", payload["postIn"])
}

func TestFactoriesSkipUnconfiguredWorkflows(t *testing.T) {
	t.Parallel()

	store, _ := newMemoryStore(t)
	reg := capability.NewRegistry(nil, &recordingPoster{}, Factories(Deps{
		Memory:   store,
		Poster:   &recordingPoster{},
		Workflow: workflow.Config{AdaptiveCardURL: "https://flows.example.com/card"},
	})...)

	names := []string{}
	for _, d := range reg.Discover(context.Background()).Descriptors() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"AdaptiveCardPowerAutomate", "CalculateMetric", "ContextMemory", "ManageMemory"}, names)
}
