package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HTTPDoer is the subset of *http.Client used by the Prober.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a Prober.
type Option func(*Prober)

// WithClient overrides the HTTP client. Passing nil keeps the default.
func WithClient(client HTTPDoer) Option {
	return func(p *Prober) {
		if client != nil {
			p.client = client
		}
	}
}

// WithStrictStatus makes non-2xx responses abort a run with a *StatusError.
func WithStrictStatus(strict bool) Option {
	return func(p *Prober) {
		p.strict = strict
	}
}

// WithLogger sets the logger. Passing nil keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Prober) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Prober issues GET requests against paths under a fixed base URL.
// The same client is reused for every request so connections can be kept alive.
type Prober struct {
	baseURL string
	client  HTTPDoer
	strict  bool
	logger  *slog.Logger
}

// New creates a Prober for baseURL. The base URL is used verbatim.
func New(baseURL string, opts ...Option) *Prober {
	p := &Prober{
		baseURL: baseURL,
		client:  &http.Client{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// BaseURL returns the base URL every request is built from.
func (p *Prober) BaseURL() string {
	return p.baseURL
}

// Get requests a single path. The returned Result is always populated; the
// error is a *TransportError on transport failure, or a *StatusError for a
// non-2xx response when strict mode is on.
func (p *Prober) Get(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	result := Result{
		Path:      path,
		URL:       p.baseURL + path,
		Status:    StatusDown,
		CheckedAt: start,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, result.URL, nil)
	if err != nil {
		return p.fail(result, start, fmt.Errorf("creating request: %w", err))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return p.fail(result, start, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	result.StatusCode = resp.StatusCode
	if err != nil {
		return p.fail(result, start, fmt.Errorf("reading body: %w", err))
	}
	result.ResponseTime = time.Since(start)
	result.Body = string(body)

	p.logger.Debug("probe response",
		"path", path,
		"status_code", resp.StatusCode,
		"bytes", len(body),
		"response_time", result.ResponseTime,
	)

	if !isSuccess(resp.StatusCode) {
		se := &StatusError{Path: path, URL: result.URL, StatusCode: resp.StatusCode}
		result.Error = se.Error()
		if p.strict {
			return result, se
		}
		return result, nil
	}

	result.Status = StatusUp
	return result, nil
}

func (p *Prober) fail(result Result, start time.Time, err error) (Result, error) {
	result.ResponseTime = time.Since(start)
	te := &TransportError{Path: result.Path, URL: result.URL, Err: err}
	result.Error = te.Error()
	p.logger.Debug("probe failed", "path", result.Path, "error", err)
	return result, te
}

// Run probes paths one at a time, in order, and calls onResult after each
// completed request before the next one starts. The first transport error
// stops the run; paths after it are never requested. A *StatusError in strict
// mode is reported to onResult before the run stops. An error returned by
// onResult also stops the run.
//
// The returned slice holds every result produced, including the failing one.
func (p *Prober) Run(ctx context.Context, paths []string, onResult func(Result) error) ([]Result, error) {
	runID := NewRunID()
	results := make([]Result, 0, len(paths))

	for _, path := range paths {
		r, err := p.Get(ctx, path)
		r.RunID = runID
		results = append(results, r)

		var se *StatusError
		if err != nil && !errors.As(err, &se) {
			return results, err
		}
		if onResult != nil {
			if cbErr := onResult(r); cbErr != nil {
				return results, cbErr
			}
		}
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
