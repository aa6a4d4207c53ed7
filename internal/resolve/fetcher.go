package resolve

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/citetrace/citetrace/pkg/refs"
)

const (
	DefaultDOIEndpoint = "https://doi.org"
	DefaultDOITimeout  = 10 * time.Second
)

// DOIFetcher retrieves the bibtex entry for a DOI from an external service.
type DOIFetcher interface {
	Fetch(ctx context.Context, doi string) (string, error)
}

// HTTPFetcher performs DOI content negotiation against a doi.org compatible
// endpoint. Failed lookups are not retried.
type HTTPFetcher struct {
	Endpoint string
	Client   *http.Client
}

// NewHTTPFetcher creates a fetcher for endpoint, falling back to doi.org.
func NewHTTPFetcher(endpoint string, timeout time.Duration) *HTTPFetcher {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultDOIEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultDOITimeout
	}
	return &HTTPFetcher{
		Endpoint: strings.TrimRight(endpoint, "/"),
		Client:   &http.Client{Timeout: timeout},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, doi string) (string, error) {
	url := f.Endpoint + "/" + refs.BareDOI(doi)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build DOI request: %w", err)
	}
	req.Header.Set("Accept", "application/x-bibtex")

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("DOI lookup for %s failed: %w", doi, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read DOI response for %s: %w", doi, err)
	}
	if resp.StatusCode == http.StatusNotFound || strings.Contains(string(body), "DOI Not Found") {
		return "", fmt.Errorf("%w: %s", ErrDOINotFound, doi)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("DOI lookup for %s returned %s", doi, resp.Status)
	}
	return string(body), nil
}
