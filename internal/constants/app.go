package constants

import (
	"time"
)

// Application identity
const (
	// AppName is used for the binary, config directory, and User-Agent.
	AppName = "ncbi-refdl"

	// ConfigFileName is the key,value CSV config file inside the config directory.
	ConfigFileName = "config.csv"
)

// Catalog source defaults
const (
	// DefaultCatalogBaseURL - GenBank genome tree; a taxon's catalog lives at
	// {base}/{taxon}/assembly_summary.txt
	DefaultCatalogBaseURL = "https://ftp.ncbi.nlm.nih.gov/genomes/genbank"

	// CatalogObjectName - file name of the summary under each taxon directory
	CatalogObjectName = "assembly_summary.txt"

	// CatalogTempPattern - temp file pattern used while a catalog is streamed to disk
	CatalogTempPattern = ".assembly_summary-*.tmp"
)

// Environment variable overrides
const (
	EnvCatalogURL    = "NCBI_REFDL_CATALOG_URL"
	EnvCacheDir      = "NCBI_REFDL_CACHE_DIR"
	EnvProxyPassword = "NCBI_REFDL_PROXY_PASSWORD"

	// EnvS3AccessKeyID / EnvS3SecretAccessKey - static keys for an S3 catalog mirror.
	// When unset the AWS default credential chain is used.
	EnvS3AccessKeyID     = "NCBI_REFDL_S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey = "NCBI_REFDL_S3_SECRET_ACCESS_KEY"

	// EnvAzureSAS / EnvAzureAccountKey - credentials for an Azure Blob catalog mirror.
	// With neither set the container must allow anonymous reads.
	EnvAzureSAS        = "AZURE_STORAGE_SAS"
	EnvAzureAccountKey = "AZURE_STORAGE_KEY"
)

// Retry configuration
const (
	// MaxRetries - maximum number of retries for transient errors
	MaxRetries = 5

	// RetryInitialDelay - initial delay before first retry (500ms)
	RetryInitialDelay = 500 * time.Millisecond

	// RetryMaxDelay - maximum delay between retries (15s)
	// Exponential backoff with jitter caps at this value
	RetryMaxDelay = 15 * time.Second

	// RetryWaitMin / RetryWaitMax - bounds for the retrying HTTP client
	RetryWaitMin = 1 * time.Second
	RetryWaitMax = 30 * time.Second
)

// Disk space safety margin
const (
	// DiskSpaceSafetyMargin - require 10% more free space than the catalog size
	DiskSpaceSafetyMargin = 1.1
)

// HTTP Client Timeouts
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (60 seconds)
	HTTPTLSHandshakeTimeout = 60 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second

	// ProxyWarmupTimeout - timeout for the optional proxy warmup request
	ProxyWarmupTimeout = 15 * time.Second
)
