package fetch

import (
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/rescale/ncbi-refdl/internal/catalog"
	"github.com/rescale/ncbi-refdl/internal/constants"
	inthttp "github.com/rescale/ncbi-refdl/internal/http"
	"github.com/rescale/ncbi-refdl/internal/logging"
)

// AzureOptions locates a catalog mirror in Azure Blob Storage.
type AzureOptions struct {
	Account    string
	Container  string
	Prefix     string
	ServiceURL string // overrides https://{account}.blob.core.windows.net/, e.g. for Azurite
	MaxRetries int
}

// AzureSource reads catalogs from {container}/{prefix}/{taxon}/assembly_summary.txt.
type AzureSource struct {
	client *azblob.Client
	opts   AzureOptions
	logger *logging.Logger
}

// NewAzureSource creates a blob client over the proxy-configured httpClient.
// Credentials come from the environment: a SAS token, else a shared account
// key, else anonymous access to a public container.
func NewAzureSource(opts AzureOptions, httpClient *nethttp.Client, logger *logging.Logger) (*AzureSource, error) {
	serviceURL := opts.ServiceURL
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", opts.Account)
	}

	clientOpts := &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Transport: httpClient,
		},
	}

	var (
		client *azblob.Client
		err    error
	)
	switch {
	case os.Getenv(constants.EnvAzureSAS) != "":
		sas := strings.TrimPrefix(os.Getenv(constants.EnvAzureSAS), "?")
		client, err = azblob.NewClientWithNoCredential(serviceURL+"?"+sas, clientOpts)
	case os.Getenv(constants.EnvAzureAccountKey) != "":
		cred, credErr := azblob.NewSharedKeyCredential(opts.Account, os.Getenv(constants.EnvAzureAccountKey))
		if credErr != nil {
			return nil, fmt.Errorf("invalid Azure account key: %w", credErr)
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, cred, clientOpts)
	default:
		client, err = azblob.NewClientWithNoCredential(serviceURL, clientOpts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}

	return &AzureSource{client: client, opts: opts, logger: logger}, nil
}

// Describe implements Source.
func (s *AzureSource) Describe(taxon catalog.Taxon) string {
	return "azblob://" + s.opts.Account + "/" + s.opts.Container + "/" + objectKey(s.opts.Prefix, taxon)
}

// Open implements Source.
func (s *AzureSource) Open(ctx context.Context, taxon catalog.Taxon) (io.ReadCloser, int64, error) {
	blobName := objectKey(s.opts.Prefix, taxon)

	var resp azblob.DownloadStreamResponse
	err := inthttp.ExecuteWithRetry(ctx, retryConfig(s.opts.MaxRetries, s.Describe(taxon), s.logger), func() error {
		r, err := s.client.DownloadStream(ctx, s.opts.Container, blobName, nil)
		resp = r
		return err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to download %s: %w", s.Describe(taxon), err)
	}

	size := int64(-1)
	if resp.ContentLength != nil {
		size = *resp.ContentLength
	}
	return resp.Body, size, nil
}
