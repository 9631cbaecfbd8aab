package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	destination string
	body        []byte
}

func (f *fakePublisher) Publish(_ context.Context, destination string, body []byte, _ map[string]string) (string, error) {
	f.destination = destination
	f.body = body
	return "msg_42", nil
}

func TestPostDirect(t *testing.T) {
	t.Parallel()

	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`queued`))
	}))
	t.Cleanup(server.Close)

	p := NewPoster(0, WithHTTPClient(server.Client()))
	resp, err := p.Post(context.Background(), Request{
		URL:     server.URL,
		Headers: map[string]string{"X-Api-Key": "secret"},
		Body:    map[string]any{"subject": "hi"},
	})
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, "queued", string(resp.Body))
	assert.Equal(t, "hi", got["subject"])
}

func TestPostNonSuccessStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	resp, err := NewPoster(0).Post(context.Background(), Request{URL: server.URL, Body: map[string]any{}})
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestPostQStash(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	p := NewPoster(0, WithPublisher(pub))

	resp, err := p.Post(context.Background(), Request{
		URL:      "https://flows.example.com/run",
		Body:     map[string]any{"a": 1},
		Delivery: DeliveryQStash,
	})
	require.NoError(t, err)
	assert.True(t, resp.Async)
	assert.Equal(t, "msg_42", resp.MessageID)
	assert.Equal(t, "https://flows.example.com/run", pub.destination)
	assert.JSONEq(t, `{"a":1}`, string(pub.body))
}

func TestPostQStashWithoutPublisher(t *testing.T) {
	t.Parallel()

	_, err := NewPoster(0).Post(context.Background(), Request{URL: "https://x", Delivery: DeliveryQStash})
	require.ErrorIs(t, err, ErrNoPublisher)
}
