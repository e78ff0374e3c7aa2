package didconfig

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultTimeout = 30 * time.Second

// Client fetches DID Configuration resources from a domain's
// well-known location.
type Client struct {
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient substitutes the HTTP client, e.g. for tests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a resource client with request tracing enabled.
func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Fetch retrieves and parses the DID Configuration resource of a
// domain. The domain must be an HTTPS origin.
func (c *Client) Fetch(ctx context.Context, domain string) (*Resource, error) {
	parsed, err := url.Parse(domain)
	if err != nil {
		return nil, fmt.Errorf("malformed domain %q: %w", domain, err)
	}

	if parsed.Scheme != "https" {
		return nil, fmt.Errorf("domain %q is not an HTTPS origin", domain)
	}

	endpoint := strings.TrimSuffix(domain, "/") + WellKnownPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build DID configuration request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call DID configuration endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DID configuration endpoint returned non-200 status: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read DID configuration response: %w", err)
	}

	return ParseResource(body)
}
