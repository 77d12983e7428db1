// http_sink.go delivers events to a network destination with a single
// synchronous POST per event. Best effort: failures are reported to the
// caller (the Tracker swallows and logs them), never retried.

package faultline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// defaultHTTPTimeout bounds each delivery attempt.
const defaultHTTPTimeout = 5 * time.Second

// HTTPSinkOption configures the HTTP sink.
type HTTPSinkOption func(*httpSinkConfig)

type httpSinkConfig struct {
	timeout time.Duration
	client  *http.Client
	headers map[string]string
}

// WithTimeout sets the per-request timeout (default: 5s).
func WithTimeout(d time.Duration) HTTPSinkOption {
	return func(c *httpSinkConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient sets a custom HTTP client. The sink applies its timeout
// per request via context, so the client's own timeout is left alone.
func WithHTTPClient(client *http.Client) HTTPSinkOption {
	return func(c *httpSinkConfig) {
		if client != nil {
			c.client = client
		}
	}
}

// WithHeaders adds headers sent with every delivery.
func WithHeaders(headers map[string]string) HTTPSinkOption {
	return func(c *httpSinkConfig) {
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// httpSink posts events to a destination URL.
type httpSink struct {
	dsn     string
	timeout time.Duration
	client  *http.Client
	headers map[string]string
}

// NewHTTPSink creates a sink that delivers each event with one synchronous
// POST to the destination URL.
func NewHTTPSink(dsn string, opts ...HTTPSinkOption) Sink {
	cfg := &httpSinkConfig{
		timeout: defaultHTTPTimeout,
		client:  http.DefaultClient,
		headers: map[string]string{},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &httpSink{
		dsn:     dsn,
		timeout: cfg.timeout,
		client:  cfg.client,
		headers: cfg.headers,
	}
}

// Write serializes the event and posts it. Non-2xx responses count as
// delivery failure.
func (s *httpSink) Write(ctx context.Context, event Event) error {
	body, err := json.Marshal(eventPayload(event))
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.EventID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.dsn, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post event %s: %w", event.EventID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post event %s: unexpected status %d", event.EventID, resp.StatusCode)
	}

	return nil
}

// Flush is a no-op: writes are synchronous.
func (s *httpSink) Flush(ctx context.Context) error {
	return nil
}

// Close releases idle connections.
func (s *httpSink) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
