package config

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rescale/ncbi-refdl/internal/constants"
)

// Config represents the ncbi-refdl configuration
type Config struct {
	// Catalog source: https://, s3://bucket/prefix or azblob://account/container/prefix
	CatalogBaseURL string

	// Directory holding {taxon}_assembly_summary.txt caches ("" = working directory)
	CacheDir string

	// Retry settings for catalog fetches
	MaxRetries int

	// Proxy settings
	ProxyMode     string // "no-proxy", "ntlm", "basic", "system"
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string
	NoProxy       string // Comma-separated list of hosts to bypass proxy
	ProxyWarmup   bool

	// S3 mirror settings
	S3Region   string
	S3Endpoint string // Custom endpoint for S3-compatible stores (path-style addressing)

	// Warnings collected while loading the config file, for the caller to log
	Warnings []string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		CatalogBaseURL: constants.DefaultCatalogBaseURL,
		MaxRetries:     constants.MaxRetries,
		ProxyMode:      "no-proxy",
		S3Region:       "us-east-1",
	}
}

// Validate checks that the configuration can drive a catalog fetch.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.CatalogBaseURL) == "" {
		return fmt.Errorf("catalog base URL is required")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1, got %d", c.MaxRetries)
	}
	switch strings.ToLower(c.ProxyMode) {
	case "", "no-proxy", "system":
	case "basic", "ntlm":
		if c.ProxyHost == "" {
			return fmt.Errorf("proxy mode %s requires a proxy host", c.ProxyMode)
		}
	default:
		return fmt.Errorf("unsupported proxy mode: %s (want no-proxy, system, basic or ntlm)", c.ProxyMode)
	}
	if c.ProxyPort < 0 || c.ProxyPort > 65535 {
		return fmt.Errorf("invalid proxy port: %d", c.ProxyPort)
	}
	return nil
}

// LoadConfigCSV loads configuration from a CSV file
// CSV format: key,value pairs
func LoadConfigCSV(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // Return defaults if config doesn't exist
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read config CSV: %w", err)
	}

	// Parse key-value pairs
	for i, record := range records {
		if i == 0 {
			// Skip header row if it looks like a header
			if len(record) >= 2 && strings.ToLower(record[0]) == "key" {
				continue
			}
		}

		if len(record) < 2 {
			continue
		}

		key := strings.TrimSpace(strings.ToLower(record[0]))
		value := strings.TrimSpace(record[1])

		switch key {
		case "catalog_base_url":
			if value != "" {
				cfg.CatalogBaseURL = value
			}
		case "cache_dir":
			cfg.CacheDir = value
		case "max_retries":
			if v, err := strconv.Atoi(value); err == nil && v > 0 {
				cfg.MaxRetries = v
			}
		case "proxy_mode":
			cfg.ProxyMode = value
		case "proxy_host":
			cfg.ProxyHost = value
		case "proxy_port":
			if v, err := strconv.Atoi(value); err == nil {
				cfg.ProxyPort = v
			}
		case "proxy_user":
			cfg.ProxyUser = value
		case "proxy_password":
			// SECURITY: Ignore proxy_password from config files
			// Proxy passwords come from the environment at runtime
			if value != "" {
				cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("proxy_password in config file is ignored for security - use %s env var", constants.EnvProxyPassword))
			}
		case "no_proxy":
			cfg.NoProxy = value
		case "proxy_warmup":
			cfg.ProxyWarmup = strings.ToLower(value) == "true" || value == "1"
		case "s3_region":
			cfg.S3Region = value
		case "s3_endpoint":
			cfg.S3Endpoint = value
		}
	}

	return cfg, nil
}

// SaveConfigCSV saves configuration to a CSV file
// CSV format: key,value pairs
func SaveConfigCSV(cfg *Config, path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	if err := writer.Write([]string{"key", "value"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// SECURITY: proxy_password is intentionally NOT saved to config files
	records := [][]string{
		{"catalog_base_url", cfg.CatalogBaseURL},
		{"cache_dir", cfg.CacheDir},
		{"max_retries", strconv.Itoa(cfg.MaxRetries)},
		{"proxy_mode", cfg.ProxyMode},
		{"proxy_host", cfg.ProxyHost},
		{"proxy_port", strconv.Itoa(cfg.ProxyPort)},
		{"proxy_user", cfg.ProxyUser},
		{"no_proxy", cfg.NoProxy},
		{"proxy_warmup", strconv.FormatBool(cfg.ProxyWarmup)},
		{"s3_region", cfg.S3Region},
		{"s3_endpoint", cfg.S3Endpoint},
	}

	for _, record := range records {
		// Only write non-empty values to keep file clean
		if record[1] != "" && record[1] != "0" && record[1] != "false" {
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write record: %w", err)
			}
		}
	}

	return nil
}

// MergeWithEnv applies environment overrides.
// Priority: flags > environment > config file > defaults
func (c *Config) MergeWithEnv() {
	if v := os.Getenv(constants.EnvCatalogURL); v != "" {
		c.CatalogBaseURL = v
	}
	if v := os.Getenv(constants.EnvCacheDir); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv(constants.EnvProxyPassword); v != "" {
		c.ProxyPassword = v
	}
}

// MergeWithFlags applies non-empty command-line values over the config.
func (c *Config) MergeWithFlags(catalogURL, cacheDir string) {
	if catalogURL != "" {
		c.CatalogBaseURL = catalogURL
	}
	if cacheDir != "" {
		c.CacheDir = cacheDir
	}
}
