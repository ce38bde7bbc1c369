// Package outbound provides the shared HTTP client used for third-party
// feature lookups. Each client is bound to one base URL with a fixed timeout
// and a small configurable retry count; it performs no logging and surfaces
// every failure as a typed error to the caller.
package outbound

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrExhaustedRetries indicates the configured retry attempts were exhausted.
var ErrExhaustedRetries = errors.New("retry attempts exhausted")

// StatusError reports a non-2xx response from the remote service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("unexpected status %d", e.Code)
}

const maxErrorBodyBytes = 512

// Client is a reusable HTTP client bound to a single remote target.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	retries int
}

// Option configures a Client.
type Option func(*Client)

// WithBearerToken sets the Authorization bearer token sent on every request.
func WithBearerToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithRetries sets how many times a failed request is reattempted (0-2).
func WithRetries(n int) Option {
	return func(c *Client) { c.retries = n }
}

// NewClient creates a client for the given base URL with the given request
// timeout. Connections are reused across calls through the default transport.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get issues a GET against path (joined to the base URL, or used verbatim when
// absolute) and returns the response body. Non-2xx responses and transport
// failures are retried up to the configured count before being returned.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retries; attempt++ {
		body, err := c.get(ctx, path)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("request abandoned: %w", ctx.Err())
		}
	}

	if c.retries > 0 {
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrExhaustedRetries, c.retries+1, lastErr)
	}
	return nil, lastErr
}

// GetJSON issues a GET and decodes the response body into v.
func (c *Client) GetJSON(ctx context.Context, path string, v any) error {
	body, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	url := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		url = c.baseURL + "/" + strings.TrimLeft(path, "/")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > maxErrorBodyBytes {
			snippet = snippet[:maxErrorBodyBytes]
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(snippet)}
	}

	return body, nil
}
