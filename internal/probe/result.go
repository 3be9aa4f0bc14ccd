package probe

import (
	"fmt"
	"time"
)

// PreviewLength is the number of characters of a body shown in a result line.
const PreviewLength = 80

// Status represents the health state of a probed path.
type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// Result is the outcome of a single probe request.
type Result struct {
	RunID        string
	Path         string
	URL          string
	Status       Status
	StatusCode   int
	Body         string
	ResponseTime time.Duration
	Error        string
	CheckedAt    time.Time
}

// Up reports whether the request completed with a 2xx status.
func (r Result) Up() bool {
	return r.Error == "" && isSuccess(r.StatusCode)
}

// Preview returns the first PreviewLength characters of the body.
func (r Result) Preview() string {
	return Preview(r.Body, PreviewLength)
}

// Line formats the result the way the run command prints it.
func (r Result) Line() string {
	return fmt.Sprintf("%s: %s...", r.Path, r.Preview())
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
