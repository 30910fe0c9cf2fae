package httpclient

import (
	"errors"
	"fmt"
)

// ErrTransientIO is matched by every TransientIOError
var ErrTransientIO = errors.New("transient I/O failure")

// HTTPError represents an HTTP error
type HTTPError struct {
	StatusCode int
	Message    string
	URL        string
}

// Error returns the error message
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(statusCode int, url, message string) error {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        url,
		Message:    message,
	}
}

// TransientIOError is an outbound call failure that is expected to clear up
// on its own: network errors, timeouts and non-2xx responses. Callers log it
// and try again on the next cycle.
type TransientIOError struct {
	Method string
	URL    string
	Err    error
}

// Error returns the error message
func (e *TransientIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying error
func (e *TransientIOError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransientIO
func (*TransientIOError) Is(target error) bool {
	return target == ErrTransientIO
}

// NewTransientIOError creates a new transient I/O error
func NewTransientIOError(method, url string, err error) error {
	return &TransientIOError{
		Method: method,
		URL:    url,
		Err:    err,
	}
}

// StatusCode returns the HTTP status code carried by err, or 0 when err was
// not caused by an HTTP response.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
