package fetch

import (
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/rescale/ncbi-refdl/internal/catalog"
	"github.com/rescale/ncbi-refdl/internal/constants"
	"github.com/rescale/ncbi-refdl/internal/version"
)

// HTTPSource reads catalogs from the NCBI FTP site over HTTPS, or from any web
// mirror with the same {base}/{taxon}/assembly_summary.txt layout.
type HTTPSource struct {
	baseURL string
	client  *retryablehttp.Client
}

// NewHTTPSource creates a source rooted at baseURL.
func NewHTTPSource(baseURL string, client *retryablehttp.Client) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// URL returns the catalog location of taxon.
func (s *HTTPSource) URL(taxon catalog.Taxon) string {
	return s.baseURL + "/" + string(taxon) + "/" + constants.CatalogObjectName
}

// Describe implements Source.
func (s *HTTPSource) Describe(taxon catalog.Taxon) string {
	return s.URL(taxon)
}

// Open implements Source. Transient failures and 5xx responses are retried by
// the retryable client; any other non-200 status is returned as an error.
func (s *HTTPSource) Open(ctx context.Context, taxon catalog.Taxon) (io.ReadCloser, int64, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, nethttp.MethodGet, s.URL(taxon), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", constants.AppName+"/"+version.Version)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != nethttp.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, 0, fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	return resp.Body, resp.ContentLength, nil
}
