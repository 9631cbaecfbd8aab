// Package server exposes the conversational turn API over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
)

const maxBodyBytes = 1 << 20

// TurnHandler runs one conversational turn.
type TurnHandler interface {
	HandleTurn(ctx context.Context, req contractx.TurnRequest) (contractx.Reply, error)
}

type Config struct {
	Addr  string `envconfig:"HTTP_ADDR" default:":7071"`
	Route string `envconfig:"ROUTE" default:"/api/businessinsightbot_function"`
}

// NewHandler routes the turn endpoint and wraps it with request logging.
func NewHandler(turns TurnHandler, route string) http.Handler {
	if strings.TrimSpace(route) == "" {
		route = "/api/businessinsightbot_function"
	}

	mux := http.NewServeMux()
	mux.Handle(route, &turnEndpoint{turns: turns})

	var h http.Handler = mux
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("http: request")
	})(h)
	h = hlog.RequestIDHandler("req_id", "X-Request-Id")(h)
	h = hlog.NewHandler(log.Logger)(h)
	return h
}

// New builds an http.Server for the turn endpoint.
func New(cfg Config, turns TurnHandler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(turns, cfg.Route),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http: listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type turnEndpoint struct {
	turns TurnHandler
}

func (e *turnEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORS(w.Header(), r.Header.Get("Origin"))
	logger := hlog.FromRequest(r)

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		writeText(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	req, status, msg := decodeTurnRequest(r.Body)
	if status != 0 {
		writeText(w, status, msg)
		return
	}

	reply, err := e.turns.HandleTurn(r.Context(), req)
	if err != nil {
		if errors.Is(err, contractx.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing or empty user_input in JSON payload"})
			return
		}
		logger.Error().Err(err).Msg("http: turn failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

// decodeTurnRequest coerces a loosely typed payload. A non-zero status means
// the request is rejected with msg as a plain-text body.
func decodeTurnRequest(body io.Reader) (contractx.TurnRequest, int, string) {
	raw, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return contractx.TurnRequest{}, http.StatusBadRequest, "Invalid JSON in request body"
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return contractx.TurnRequest{}, http.StatusBadRequest, "Missing JSON payload in request body"
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return contractx.TurnRequest{}, http.StatusBadRequest, "Invalid JSON in request body"
	}
	fields, ok := payload.(map[string]any)
	if !ok || len(fields) == 0 {
		return contractx.TurnRequest{}, http.StatusBadRequest, "Missing JSON payload in request body"
	}

	req := contractx.TurnRequest{
		UserInput: cast.ToString(fields["user_input"]),
		UserGUID:  cast.ToString(fields["user_guid"]),
	}
	if history, ok := fields["conversation_history"].([]any); ok {
		for _, item := range history {
			turn, err := cast.ToStringMapE(item)
			if err != nil {
				continue
			}
			req.History = append(req.History, contractx.Turn{
				Role:    contractx.NormalizeRole(cast.ToString(turn["role"])),
				Content: cast.ToString(turn["content"]),
			})
		}
	}
	return req, 0, ""
}

func setCORS(h http.Header, origin string) {
	if origin == "" {
		origin = "*"
	}
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", "*")
	h.Set("Access-Control-Allow-Headers", "*")
	h.Set("Access-Control-Allow-Credentials", "true")
	h.Set("Access-Control-Max-Age", "86400")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("http: encode response")
	}
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}
