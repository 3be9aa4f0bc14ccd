// Package gateway is a small client for the Hodor MCP gateway's REST surface:
// tool listing and health polling.
package gateway

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hazz-dev/hodorprobe/internal/jsonutil"
	"github.com/hazz-dev/hodorprobe/internal/probe"
)

const (
	// DefaultWaitAttempts and DefaultWaitDelay bound WaitHealthy when callers pass zero.
	DefaultWaitAttempts = 10
	DefaultWaitDelay    = 2 * time.Second

	healthAttemptTimeout = 2 * time.Second
)

// HTTPDoer is the subset of *http.Client used by Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Tool is one entry of the gateway's /api/tools listing.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"inputSchema,omitempty"`
}

type toolsPage struct {
	Tools      []Tool `json:"tools"`
	NextCursor string `json:"nextCursor"`
}

// StatusError is returned when the gateway answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Health is the raw answer of the gateway's /health endpoint.
type Health struct {
	StatusCode int
	Body       string
}

// OK reports whether the health endpoint answered 2xx.
func (h Health) OK() bool {
	return h.StatusCode >= 200 && h.StatusCode < 300
}

// Client talks to a single gateway.
type Client struct {
	baseURL string
	client  HTTPDoer
	logger  *slog.Logger
}

// New creates a Client. Trailing slashes on baseURL are trimmed.
// Pass nil client for a plain *http.Client and nil logger for slog.Default().
func New(baseURL string, client HTTPDoer, logger *slog.Logger) *Client {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

// ListTools returns every tool the gateway exposes, following nextCursor
// until the last page.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	var tools []Tool
	seen := make(map[string]bool)
	cursor := ""

	for {
		target := c.baseURL + "/api/tools"
		if cursor != "" {
			target += "?cursor=" + url.QueryEscape(cursor)
		}

		body, err := c.get(ctx, target)
		if err != nil {
			return nil, err
		}

		var page toolsPage
		if err := jsonutil.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decoding tools page: %w", err)
		}
		tools = append(tools, page.Tools...)
		c.logger.Debug("tools page", "count", len(page.Tools), "next_cursor", page.NextCursor)

		if page.NextCursor == "" {
			return tools, nil
		}
		if seen[page.NextCursor] {
			return nil, fmt.Errorf("tools pagination repeated cursor %q", page.NextCursor)
		}
		seen[page.NextCursor] = true
		cursor = page.NextCursor
	}
}

// Health queries the gateway's /health endpoint. Any status is returned
// without error; only transport failures fail.
func (c *Client) Health(ctx context.Context) (Health, error) {
	target := c.baseURL + "/health"
	resp, body, err := c.do(ctx, target)
	if err != nil {
		return Health{}, err
	}
	return Health{StatusCode: resp.StatusCode, Body: string(body)}, nil
}

// WaitHealthy polls /health until it answers 2xx, up to attempts times with
// delay between attempts. onAttempt, if non-nil, is called after every
// failed attempt.
func (c *Client) WaitHealthy(ctx context.Context, attempts int, delay time.Duration, onAttempt func(attempt int, err error)) error {
	if attempts <= 0 {
		attempts = DefaultWaitAttempts
	}
	if delay < 0 {
		delay = DefaultWaitDelay
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, healthAttemptTimeout)
		h, err := c.Health(attemptCtx)
		cancel()
		if err == nil && h.OK() {
			return nil
		}
		if err == nil {
			err = &StatusError{URL: c.baseURL + "/health", StatusCode: h.StatusCode, Body: probe.Preview(h.Body, probe.PreviewLength)}
		}
		lastErr = err
		if onAttempt != nil {
			onAttempt(attempt, err)
		}
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("gateway not healthy after %d attempts: %w", attempts, lastErr)
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	resp, body, err := c.do(ctx, target)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode, Body: probe.Preview(string(body), probe.PreviewLength)}
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, target string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", target, err)
	}
	return resp, body, nil
}
