// Package remote implements the calls the registry makes to resources:
// health probes, enabling subscriptions and stopping them again.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/stacklok/coordination-registry/internal/httpclient"
	"github.com/stacklok/coordination-registry/internal/registry"
)

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go ResourceClient

const (
	// DefaultProbeTimeout bounds a single health probe
	DefaultProbeTimeout = 10 * time.Second

	healthPath        = "health"
	subscriptionsPath = "subscriptions"
)

// ResourceClient performs outbound calls to a resource endpoint. Failures are
// *httpclient.TransientIOError values.
type ResourceClient interface {
	// Probe checks the resource health endpoint
	Probe(ctx context.Context, endpoint string) error

	// Enable asks the resource to start serving the subscription
	Enable(ctx context.Context, endpoint string, sub registry.Subscription) error

	// Disable asks the resource to stop serving the subscription
	Disable(ctx context.Context, endpoint, subscriptionID string) error
}

// EnableRequest is the body sent to a resource when enabling a subscription
type EnableRequest struct {
	ID           string          `json:"id"`
	CapabilityID string          `json:"capabilityId"`
	Owner        string          `json:"owner"`
	CallbackURL  string          `json:"callbackUrl,omitempty"`
	Params       json.RawMessage `json:"params,omitempty"`
}

type httpResourceClient struct {
	client       httpclient.Client
	probeTimeout time.Duration
}

// Option configures the resource client
type Option func(*httpResourceClient)

// WithProbeTimeout sets the timeout of a single health probe
func WithProbeTimeout(d time.Duration) Option {
	return func(c *httpResourceClient) {
		if d > 0 {
			c.probeTimeout = d
		}
	}
}

// NewHTTPResourceClient creates a ResourceClient on top of an HTTP client
func NewHTTPResourceClient(client httpclient.Client, opts ...Option) ResourceClient {
	c := &httpResourceClient{
		client:       client,
		probeTimeout: DefaultProbeTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Probe sends GET <endpoint>/health
func (c *httpResourceClient) Probe(ctx context.Context, endpoint string) error {
	target, err := url.JoinPath(endpoint, healthPath)
	if err != nil {
		return fmt.Errorf("failed to build probe URL for %s: %w", endpoint, err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	if _, err := c.client.Get(probeCtx, target); err != nil {
		return fmt.Errorf("probe failed: %w", err)
	}
	return nil
}

// Enable sends PUT <endpoint>/subscriptions/<id>
func (c *httpResourceClient) Enable(ctx context.Context, endpoint string, sub registry.Subscription) error {
	target, err := url.JoinPath(endpoint, subscriptionsPath, sub.ID)
	if err != nil {
		return fmt.Errorf("failed to build enable URL for %s: %w", endpoint, err)
	}

	body, err := json.Marshal(EnableRequest{
		ID:           sub.ID,
		CapabilityID: sub.CapabilityID,
		Owner:        sub.Owner,
		CallbackURL:  sub.CallbackURL,
		Params:       sub.Params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal enable request: %w", err)
	}

	if _, err := c.client.Put(ctx, target, body); err != nil {
		return fmt.Errorf("enable failed: %w", err)
	}
	return nil
}

// Disable sends DELETE <endpoint>/subscriptions/<id>
func (c *httpResourceClient) Disable(ctx context.Context, endpoint, subscriptionID string) error {
	target, err := url.JoinPath(endpoint, subscriptionsPath, subscriptionID)
	if err != nil {
		return fmt.Errorf("failed to build disable URL for %s: %w", endpoint, err)
	}
	if err := c.client.Delete(ctx, target); err != nil {
		return fmt.Errorf("disable failed: %w", err)
	}
	return nil
}
