// Package workflow delivers JSON payloads to external automation endpoints,
// either directly over HTTP or asynchronously through a publisher such as QStash.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseSizeBytes = 1 << 20

type Delivery string

const (
	DeliveryDirect Delivery = "direct"
	DeliveryQStash Delivery = "qstash"
)

var ErrNoPublisher = errors.New("async delivery requested but no publisher is configured")

type Config struct {
	EmailURL        string        `split_words:"true"`
	AdaptiveCardURL string        `split_words:"true"`
	Timeout         time.Duration `split_words:"true" default:"30s"`
}

// Publisher enqueues a payload for later delivery.
type Publisher interface {
	Publish(ctx context.Context, destination string, body []byte, headers map[string]string) (string, error)
}

type Request struct {
	URL      string
	Method   string
	Headers  map[string]string
	Body     any
	Delivery Delivery
	Timeout  time.Duration
}

// Response is what the endpoint returned. Async responses carry the queue message id instead.
type Response struct {
	StatusCode int
	Body       []byte
	Async      bool
	MessageID  string
}

func (r Response) OK() bool {
	return r.Async || r.StatusCode == http.StatusOK || r.StatusCode == http.StatusAccepted
}

type Poster struct {
	httpClient *http.Client
	publisher  Publisher
	timeout    time.Duration
}

type PosterOption func(*Poster)

func WithHTTPClient(client *http.Client) PosterOption {
	return func(p *Poster) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithPublisher enables qstash delivery.
func WithPublisher(pub Publisher) PosterOption {
	return func(p *Poster) {
		p.publisher = pub
	}
}

func NewPoster(timeout time.Duration, opts ...PosterOption) *Poster {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	p := &Poster{
		httpClient: &http.Client{},
		timeout:    timeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *Poster) Post(ctx context.Context, req Request) (Response, error) {
	target := strings.TrimSpace(req.URL)
	if target == "" {
		return Response{}, errors.New("workflow url is empty")
	}

	body, err := json.Marshal(req.Body)
	if err != nil {
		return Response{}, fmt.Errorf("marshal workflow payload: %w", err)
	}

	if req.Delivery == DeliveryQStash {
		if p.publisher == nil {
			return Response{}, ErrNoPublisher
		}
		id, err := p.publisher.Publish(ctx, target, body, req.Headers)
		if err != nil {
			return Response{}, fmt.Errorf("publish workflow payload: %w", err)
		}
		return Response{StatusCode: http.StatusAccepted, Async: true, MessageID: id}, nil
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = p.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodPost
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("build workflow request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("execute workflow request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return Response{}, fmt.Errorf("read workflow response: %w", err)
	}
	return Response{StatusCode: resp.StatusCode, Body: raw}, nil
}
