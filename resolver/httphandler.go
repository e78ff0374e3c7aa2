package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/iotaledger/identity.rs-sub007/did"
)

// NewHTTPHandler returns a Handler backed by a universal-resolver style
// HTTP endpoint: the document is fetched from baseURL/<escaped-did>.
func NewHTTPHandler(baseURL string) Handler {
	client := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	return func(ctx context.Context, d did.DID) (*did.Document, error) {
		apiURL := baseURL + "/" + url.PathEscape(d.String())

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build resolver request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to call DID resolver endpoint: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("DID resolver endpoint returned non-200 status: %s", resp.Status)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read DID resolver response body: %w", err)
		}

		var doc did.Document
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal DID document JSON: %w", err)
		}

		return &doc, nil
	}
}
