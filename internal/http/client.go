// Package http builds the proxy-aware, retrying HTTP clients used to fetch catalogs.
package http

import (
	"fmt"
	nethttp "net/http"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/rescale/ncbi-refdl/internal/config"
	"github.com/rescale/ncbi-refdl/internal/constants"
	"github.com/rescale/ncbi-refdl/internal/logging"
)

// retryLogger implements the retryablehttp.LeveledLogger interface on top of
// the CLI logger. Routine per-request debug chatter is kept at debug level.
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

// NewRetryableClient wraps the proxy-configured client with retry logic.
func NewRetryableClient(cfg *config.Config, logger *logging.Logger) (*retryablehttp.Client, error) {
	httpClient, err := ConfigureHTTPClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}
	return WrapRetryable(httpClient, cfg.MaxRetries, logger), nil
}

// WrapRetryable wraps an existing client with retryablehttp.
func WrapRetryable(httpClient *nethttp.Client, maxRetries int, logger *logging.Logger) *retryablehttp.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.RetryMax = maxRetries
	retryClient.RetryWaitMin = constants.RetryWaitMin
	retryClient.RetryWaitMax = constants.RetryWaitMax
	retryClient.Logger = &retryLogger{logger: logger}
	return retryClient
}
