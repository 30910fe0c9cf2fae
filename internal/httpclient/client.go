// Package httpclient provides the HTTP client used for outbound calls to
// resources and subscription owners.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go Client

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 10 * time.Second

	// MaxResponseSize is the maximum allowed response size (10MB)
	MaxResponseSize = 10 * 1024 * 1024

	// UserAgent is the user agent string for HTTP requests
	UserAgent = "coordination-registry/1.0"

	contentTypeJSON = "application/json"
)

// Client is an interface for HTTP operations. Every failure of a request that
// was sent, including non-2xx responses and timeouts, is a *TransientIOError.
type Client interface {
	// Get performs an HTTP GET request and returns the response body
	Get(ctx context.Context, url string) ([]byte, error)

	// Post sends body as JSON and returns the response body
	Post(ctx context.Context, url string, body []byte) ([]byte, error)

	// Put sends body as JSON and returns the response body
	Put(ctx context.Context, url string, body []byte) ([]byte, error)

	// Delete performs an HTTP DELETE request
	Delete(ctx context.Context, url string) error
}

// DefaultClient is the default HTTP client implementation
type DefaultClient struct {
	client  *http.Client
	timeout time.Duration
}

// NewDefaultClient creates a new default HTTP client with the specified timeout
// If timeout is 0, uses DefaultTimeout
func NewDefaultClient(timeout time.Duration) Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &DefaultClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs an HTTP GET request
func (c *DefaultClient) Get(ctx context.Context, url string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, nil)
}

// Post performs an HTTP POST request with a JSON body
func (c *DefaultClient) Post(ctx context.Context, url string, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, url, body)
}

// Put performs an HTTP PUT request with a JSON body
func (c *DefaultClient) Put(ctx context.Context, url string, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPut, url, body)
}

// Delete performs an HTTP DELETE request
func (c *DefaultClient) Delete(ctx context.Context, url string) error {
	_, err := c.do(ctx, http.MethodDelete, url, nil)
	return err
}

func (c *DefaultClient) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", contentTypeJSON)
	if body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}

	// Execute request
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, NewTransientIOError(method, url, fmt.Errorf("failed to execute request: %w", err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Check status code
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, NewTransientIOError(method, url, NewHTTPError(resp.StatusCode, url, resp.Status))
	}

	// Check Content-Length header if available
	if resp.ContentLength > MaxResponseSize {
		return nil, NewTransientIOError(method, url,
			fmt.Errorf("response size %d bytes exceeds maximum allowed size of %d bytes (%.2f MB)",
				resp.ContentLength, MaxResponseSize, float64(MaxResponseSize)/(1024*1024)))
	}

	// +1 to detect if limit exceeded
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize+1)
	data, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, NewTransientIOError(method, url, fmt.Errorf("failed to read response body: %w", err))
	}
	if int64(len(data)) > MaxResponseSize {
		return nil, NewTransientIOError(method, url,
			fmt.Errorf("response size exceeds maximum allowed size of %d bytes (%.2f MB)",
				MaxResponseSize, float64(MaxResponseSize)/(1024*1024)))
	}

	return data, nil
}
