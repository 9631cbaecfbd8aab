package capability

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
	"github.com/tanpawarit/businessinsightbot/agent/storage"
	"github.com/tanpawarit/businessinsightbot/pkg/workflow"
)

type staticHandler struct {
	name   string
	result string
}

func (h staticHandler) Descriptor() contractx.Descriptor {
	return contractx.Descriptor{Name: h.name, Description: "static " + h.name}
}

func (h staticHandler) Perform(context.Context, map[string]any) (string, error) {
	return h.result, nil
}

type recordingPoster struct {
	reqs []workflow.Request
	resp workflow.Response
	err  error
}

func (p *recordingPoster) Post(_ context.Context, req workflow.Request) (workflow.Response, error) {
	p.reqs = append(p.reqs, req)
	return p.resp, p.err
}

func factoryFor(h contractx.Handler) Factory {
	return Factory{Name: h.Descriptor().Name, Build: func() (contractx.Handler, error) { return h, nil }}
}

func TestDiscoverPriorityAndFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := storage.NewFSBackendOn(afero.NewMemMapFs())
	require.NoError(t, backend.Put(ctx, "agents/ping_agent.json", []byte(`{
		"name": "Ping",
		"description": "from agents",
		"endpoint": {"url": "https://flows.example.com/ping"}
	}`)))
	require.NoError(t, backend.Put(ctx, "multi_agents/ping_agent.yaml", []byte(`
name: Ping
description: from multi_agents
endpoint:
  url: https://flows.example.com/ping2
`)))
	require.NoError(t, backend.Put(ctx, "agents/broken_agent.json", []byte(`{not json`)))
	require.NoError(t, backend.Put(ctx, "agents/nourl_agent.toml", []byte(`name = "NoURL"`)))
	require.NoError(t, backend.Put(ctx, "agents/readme.md", []byte(`ignored`)))

	reg := NewRegistry(backend, &recordingPoster{},
		factoryFor(staticHandler{name: "Ping", result: "builtin"}),
		factoryFor(staticHandler{name: "Echo", result: "echo"}),
		Factory{Name: "Failing", Build: func() (contractx.Handler, error) { return nil, errors.New("no config") }},
		Factory{Name: "Panicking", Build: func() (contractx.Handler, error) { panic("boom") }},
	)

	set := reg.Discover(ctx)
	require.Equal(t, 2, set.Len())

	h, ok := set.Lookup("Ping")
	require.True(t, ok)
	assert.Equal(t, "from multi_agents", h.Descriptor().Description)

	names := []string{}
	for _, d := range set.Descriptors() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"Echo", "Ping"}, names)

	entries := set.Entries()
	assert.Equal(t, SourceBuiltin, entries[0].Source)
	assert.Equal(t, SourceMultiAgents, entries[1].Source)
}

func TestInvokeNotFound(t *testing.T) {
	t.Parallel()

	set := NewRegistry(nil, nil).Discover(context.Background())
	assert.Equal(t, 0, set.Len())

	_, err := set.Invoke(context.Background(), "Ghost", nil)
	require.ErrorIs(t, err, contractx.ErrCapabilityNotFound)
}

func TestInvokeRunsHandler(t *testing.T) {
	t.Parallel()

	set := NewRegistry(nil, nil, factoryFor(staticHandler{name: "Echo", result: "pong"})).Discover(context.Background())
	got, err := set.Invoke(context.Background(), "Echo", nil)
	require.NoError(t, err)
	assert.Equal(t, "pong", got)
}
