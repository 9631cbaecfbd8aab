package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
)

const (
	defaultUpstashKeyPrefix = "bib:"
	maxResponseSizeBytes    = 2 << 20
)

// UpstashOption customizes UpstashBackend.
type UpstashOption func(*UpstashBackend)

func WithKeyPrefix(prefix string) UpstashOption {
	return func(b *UpstashBackend) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			b.keyPrefix = trimmed
		}
	}
}

func WithHTTPClient(client *http.Client) UpstashOption {
	return func(b *UpstashBackend) {
		if client != nil {
			b.httpClient = client
		}
	}
}

type UpstashConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// UpstashBackend keeps blobs as Redis strings through the Upstash REST API.
type UpstashBackend struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
}

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func NewUpstashBackend(cfg UpstashConfig, opts ...UpstashOption) (*UpstashBackend, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: upstash redis url is required", contractx.ErrValidation)
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("%w: invalid redis rest url: %v", contractx.ErrValidation, err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, fmt.Errorf("%w: upstash redis token is required", contractx.ErrValidation)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	b := &UpstashBackend{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		keyPrefix:  defaultUpstashKeyPrefix,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b, nil
}

func (b *UpstashBackend) Get(ctx context.Context, key string) ([]byte, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	resp, err := b.exec(ctx, []any{"GET", b.keyPrefix + clean})
	if err != nil {
		return nil, err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, notFound(clean)
	}

	var encoded string
	if err := json.Unmarshal(result, &encoded); err != nil {
		return nil, fmt.Errorf("%w: decode payload for %s: %v", contractx.ErrStorage, clean, err)
	}
	return []byte(encoded), nil
}

func (b *UpstashBackend) Put(ctx context.Context, key string, data []byte) error {
	clean, err := cleanKey(key)
	if err != nil {
		return err
	}
	_, err = b.exec(ctx, []any{"SET", b.keyPrefix + clean, string(data)})
	return err
}

func (b *UpstashBackend) List(ctx context.Context, prefix string) ([]string, error) {
	pattern := b.keyPrefix + strings.Trim(strings.TrimSpace(prefix), "/") + "/*"
	resp, err := b.exec(ctx, []any{"KEYS", pattern})
	if err != nil {
		return nil, err
	}

	var raw []string
	if len(bytes.TrimSpace(resp.Result)) > 0 {
		if err := json.Unmarshal(resp.Result, &raw); err != nil {
			return nil, fmt.Errorf("%w: decode key list: %v", contractx.ErrStorage, err)
		}
	}

	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, strings.TrimPrefix(k, b.keyPrefix))
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *UpstashBackend) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	if b == nil {
		return nil, errors.New("nil upstash backend")
	}
	if len(command) == 0 {
		return nil, errors.New("empty redis command")
	}

	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: execute redis request: %v", contractx.ErrStorage, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read redis response: %v", contractx.ErrStorage, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: redis http status=%d body=%s", contractx.ErrStorage, resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode redis response: %v", contractx.ErrStorage, err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("%w: %s", contractx.ErrStorage, parsed.Error)
	}
	return &parsed, nil
}
