package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
)

const route = "/api/businessinsightbot_function"

type fakeTurns struct {
	got   []contractx.TurnRequest
	reply contractx.Reply
	err   error
}

func (f *fakeTurns) HandleTurn(_ context.Context, req contractx.TurnRequest) (contractx.Reply, error) {
	f.got = append(f.got, req)
	return f.reply, f.err
}

func do(t *testing.T, h http.Handler, method, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, route, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTurnEndpointSuccess(t *testing.T) {
	turns := &fakeTurns{reply: contractx.Reply{Rich: "rich", Voice: "voice", AgentLog: "log", UserGUID: "g"}}
	h := NewHandler(turns, route)

	body := `{"user_input": 42, "user_guid": "abc", "conversation_history": [
		{"role": "user", "content": "hi"},
		"garbage",
		{"role": "tool", "content": {"status": "success"}}
	]}`
	rec := do(t, h, http.MethodPost, body, map[string]string{"Origin": "https://app.example"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, map[string]string{
		"assistant_response": "rich",
		"voice_response":     "voice",
		"agent_logs":         "log",
		"user_guid":          "g",
	}, out)

	require.Len(t, turns.got, 1)
	req := turns.got[0]
	assert.Equal(t, "42", req.UserInput)
	assert.Equal(t, "abc", req.UserGUID)
	require.Len(t, req.History, 2)
	assert.Equal(t, contractx.RoleUser, req.History[0].Role)
	assert.Equal(t, contractx.RoleFunction, req.History[1].Role)
}

func TestTurnEndpointRejections(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"invalid json", http.MethodPost, `{"user_input":`, http.StatusBadRequest, "Invalid JSON in request body"},
		{"empty body", http.MethodPost, ``, http.StatusBadRequest, "Missing JSON payload in request body"},
		{"empty object", http.MethodPost, `{}`, http.StatusBadRequest, "Missing JSON payload in request body"},
		{"wrong method", http.MethodGet, ``, http.StatusMethodNotAllowed, "Method not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turns := &fakeTurns{}
			rec := do(t, NewHandler(turns, route), tt.method, tt.body, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Empty(t, turns.got)
		})
	}
}

func TestTurnEndpointPreflight(t *testing.T) {
	rec := do(t, NewHandler(&fakeTurns{}, route), http.MethodOptions, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
}

func TestTurnEndpointErrorMapping(t *testing.T) {
	validation := &fakeTurns{err: fmt.Errorf("%w: empty", contractx.ErrValidation)}
	rec := do(t, NewHandler(validation, route), http.MethodPost, `{"user_input":"  "}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing or empty user_input in JSON payload"}`, rec.Body.String())

	internal := &fakeTurns{err: errors.New("disk on fire")}
	rec = do(t, NewHandler(internal, route), http.MethodPost, `{"user_input":"hi"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}
