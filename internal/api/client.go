// Package api is the HTTP client for the storefront backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nikolayk812/licensing-storefront/internal/metrics"
	"github.com/nikolayk812/licensing-storefront/internal/session"
)

const (
	IdempotencyHeader = "Idempotency-Key"

	maxBodyBytes = 4 << 20
)

type TokenSource interface {
	AuthToken(ctx context.Context) (string, error)
}

type auth int

const (
	authNone auth = iota
	authOptional
	authRequired
)

type Client struct {
	endpoints Endpoints
	http      *http.Client
	tokens    TokenSource
	metrics   *metrics.ClientMetrics
	logger    *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithMetrics(m *metrics.ClientMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func NewClient(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	endpoints, err := NewEndpoints(baseURL)
	if err != nil {
		return nil, fmt.Errorf("NewEndpoints: %w", err)
	}
	if tokens == nil {
		return nil, fmt.Errorf("tokens is nil")
	}

	c := &Client{
		endpoints: endpoints,
		http:      &http.Client{Timeout: 15 * time.Second},
		tokens:    tokens,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

type call struct {
	resource Resource
	method   string
	url      string
	auth     auth
	body     any
	header   http.Header
}

// do sends the call and decodes the response payload into out when out is not nil.
func (c *Client) do(ctx context.Context, cl call, out any) error {
	req, err := c.newRequest(ctx, cl)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.Observe(string(cl.resource), 0, time.Since(start))
		c.logger.WarnContext(ctx, "api request failed",
			"resource", cl.resource, "method", cl.method, "error", err)
		return fmt.Errorf("http.Do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	c.metrics.Observe(string(cl.resource), resp.StatusCode, time.Since(start))
	if err != nil {
		return fmt.Errorf("io.ReadAll: %w", err)
	}

	c.logger.DebugContext(ctx, "api request",
		"resource", cl.resource, "method", cl.method, "status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newError(resp.StatusCode, body)
		c.logger.WarnContext(ctx, "api request rejected",
			"resource", cl.resource, "status", resp.StatusCode, "message", apiErr.Message)
		return apiErr
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(payload(body), out); err != nil {
		return fmt.Errorf("decode %s response: %w", cl.resource, err)
	}

	return nil
}

func (c *Client) newRequest(ctx context.Context, cl call) (*http.Request, error) {
	var token string
	if cl.auth != authNone {
		t, err := c.tokens.AuthToken(ctx)
		switch {
		case errors.Is(err, session.ErrNotAuthenticated) && cl.auth == authOptional:
			// anonymous
		case err != nil:
			return nil, err
		default:
			token = t
		}
	}

	var reader io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("json.Marshal: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, cl.url, reader)
	if err != nil {
		return nil, fmt.Errorf("http.NewRequest: %w", err)
	}

	for k, vs := range cl.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}

// payload unwraps a {"success","message","data"} envelope; bare bodies pass through.
func payload(body []byte) []byte {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return body
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return body
	}
	return envelope.Data
}
