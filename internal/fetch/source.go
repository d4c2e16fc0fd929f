// Package fetch downloads taxon catalogs from NCBI or an institutional mirror
// and keeps them in the local cache.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/rescale/ncbi-refdl/internal/catalog"
	"github.com/rescale/ncbi-refdl/internal/config"
	"github.com/rescale/ncbi-refdl/internal/constants"
	inthttp "github.com/rescale/ncbi-refdl/internal/http"
	"github.com/rescale/ncbi-refdl/internal/logging"
)

// azureBlobHostSuffix identifies Azure Blob endpoints given as https URLs.
const azureBlobHostSuffix = ".blob.core.windows.net"

// Source opens the assembly summary of a taxon.
type Source interface {
	// Open returns the catalog body and its size in bytes, or -1 when the
	// source does not report one. The caller closes the body.
	Open(ctx context.Context, taxon catalog.Taxon) (io.ReadCloser, int64, error)

	// Describe names the location the catalog is read from, for logs.
	Describe(taxon catalog.Taxon) string
}

// NewSource selects a Source from the scheme of cfg.CatalogBaseURL:
//   - http(s)://host/path       NCBI or a web mirror
//   - s3://bucket/prefix        S3 or S3-compatible mirror
//   - azblob://account/container/prefix, or
//     https://account.blob.core.windows.net/container/prefix
func NewSource(ctx context.Context, cfg *config.Config, logger *logging.Logger) (Source, error) {
	base := strings.TrimSpace(cfg.CatalogBaseURL)
	if base == "" {
		base = constants.DefaultCatalogBaseURL
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog base URL %q: %w", base, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if strings.HasSuffix(strings.ToLower(u.Hostname()), azureBlobHostSuffix) {
			account := strings.SplitN(u.Hostname(), ".", 2)[0]
			container, prefix := splitContainer(u.Path)
			return newAzureFromConfig(account, container, prefix, cfg, logger)
		}
		client, err := inthttp.NewRetryableClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		return NewHTTPSource(base, client), nil

	case "s3":
		if u.Host == "" {
			return nil, fmt.Errorf("invalid catalog base URL %q: missing bucket", base)
		}
		httpClient, err := inthttp.ConfigureHTTPClient(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
		}
		return NewS3Source(ctx, S3Options{
			Bucket:     u.Host,
			Prefix:     strings.Trim(u.Path, "/"),
			Region:     cfg.S3Region,
			Endpoint:   cfg.S3Endpoint,
			MaxRetries: cfg.MaxRetries,
		}, httpClient, logger)

	case "azblob":
		if u.Host == "" {
			return nil, fmt.Errorf("invalid catalog base URL %q: missing storage account", base)
		}
		container, prefix := splitContainer(u.Path)
		return newAzureFromConfig(u.Host, container, prefix, cfg, logger)

	default:
		return nil, fmt.Errorf("unsupported catalog source scheme %q (want https, s3 or azblob)", u.Scheme)
	}
}

func newAzureFromConfig(account, container, prefix string, cfg *config.Config, logger *logging.Logger) (Source, error) {
	if container == "" {
		return nil, fmt.Errorf("invalid Azure catalog location: missing container for account %s", account)
	}
	httpClient, err := inthttp.ConfigureHTTPClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}
	return NewAzureSource(AzureOptions{
		Account:    account,
		Container:  container,
		Prefix:     prefix,
		MaxRetries: cfg.MaxRetries,
	}, httpClient, logger)
}

// splitContainer splits "/container/some/prefix" into its container and prefix.
func splitContainer(p string) (container, prefix string) {
	parts := strings.SplitN(strings.Trim(p, "/"), "/", 2)
	container = parts[0]
	if len(parts) == 2 {
		prefix = parts[1]
	}
	return container, prefix
}

// objectKey is the key of a taxon catalog below an object-store prefix.
func objectKey(prefix string, taxon catalog.Taxon) string {
	return strings.TrimPrefix(path.Join(prefix, string(taxon), constants.CatalogObjectName), "/")
}

// retryConfig builds the classified-error retry policy for object-store sources.
func retryConfig(maxRetries int, what string, logger *logging.Logger) inthttp.Config {
	rc := inthttp.DefaultConfig()
	if maxRetries > 0 {
		rc.MaxRetries = maxRetries
	}
	rc.OnRetry = func(attempt int, err error, errType inthttp.ErrorType) {
		logger.Warn().
			Err(err).
			Str("source", what).
			Int("attempt", attempt).
			Str("type", inthttp.ErrorTypeName(errType)).
			Msg("Catalog fetch failed, retrying")
	}
	return rc
}
