package status

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// FetchFunc retrieves the raw bytes of an external status list
// credential.
type FetchFunc func(ctx context.Context, rawURL string) ([]byte, error)

// defaultFetcher is the fetcher used when Config.Fetcher is nil.
var defaultFetcher = NewHTTPFetcher()

// NewHTTPFetcher returns a FetchFunc that refuses non-HTTPS origins and
// refuses to follow redirects, preventing protocol downgrade and open
// redirect abuse.
func NewHTTPFetcher() FetchFunc {
	client := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return fmt.Errorf("status list fetch does not follow redirects")
		},
	}

	return func(ctx context.Context, rawURL string) ([]byte, error) {
		return fetchWithClient(ctx, client, rawURL)
	}
}

func fetchWithClient(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("malformed status list URL: %w", err)
	}

	if parsed.Scheme != "https" {
		return nil, fmt.Errorf("status list URL %q is not an HTTPS origin", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status list request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call status list endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status list endpoint returned non-200 status: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read status list response body: %w", err)
	}

	return body, nil
}
