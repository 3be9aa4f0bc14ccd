package probe

import (
	"fmt"
	"net/http"
)

// TransportError reports a failure below the HTTP status layer: request
// construction, DNS, connection, TLS, timeout, or reading the body.
type TransportError struct {
	Path string
	URL  string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is returned in strict mode when a response is not 2xx.
type StatusError struct {
	Path       string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}
