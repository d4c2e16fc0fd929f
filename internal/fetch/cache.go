package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rescale/ncbi-refdl/internal/catalog"
	"github.com/rescale/ncbi-refdl/internal/constants"
	"github.com/rescale/ncbi-refdl/internal/diskspace"
	"github.com/rescale/ncbi-refdl/internal/logging"
	"github.com/rescale/ncbi-refdl/internal/progress"
)

// CacheError reports a failure to read or populate the local catalog cache.
type CacheError struct {
	Path string
	Op   string
	Err  error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("catalog cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// IsCacheError checks if an error is (or wraps) a CacheError.
func IsCacheError(err error) bool {
	var ce *CacheError
	return errors.As(err, &ce)
}

// CachePath returns the cache location of taxon's catalog. An empty cacheDir
// means the working directory.
func CachePath(cacheDir string, taxon catalog.Taxon) string {
	return filepath.Join(cacheDir, taxon.SummaryFilename())
}

// Options control EnsureCatalog.
type Options struct {
	CacheDir string
	Refresh  bool              // fetch even when a cached copy exists
	Progress progress.Reporter // nil disables progress output
}

// Result describes the catalog EnsureCatalog settled on.
type Result struct {
	Path    string
	Fetched bool
	Bytes   int64
}

// EnsureCatalog returns the cached catalog of taxon, fetching it from src
// first when it is missing or opts.Refresh is set. src is never opened when a
// cached copy is used, and Describe is only called after Open. A fetched catalog is streamed to a temp file beside the
// cache and renamed into place, so an interrupted fetch never leaves a
// truncated cache behind.
func EnsureCatalog(ctx context.Context, src Source, taxon catalog.Taxon, opts Options, logger *logging.Logger) (*Result, error) {
	path := CachePath(opts.CacheDir, taxon)

	if !opts.Refresh {
		info, err := os.Stat(path)
		switch {
		case err == nil && info.IsDir():
			return nil, &CacheError{Path: path, Op: "stat", Err: errors.New("is a directory")}
		case err == nil:
			logger.Info().Str("path", path).Int64("bytes", info.Size()).Msg("Catalog already cached, skipping fetch")
			return &Result{Path: path, Bytes: info.Size()}, nil
		case !errors.Is(err, os.ErrNotExist):
			return nil, &CacheError{Path: path, Op: "stat", Err: err}
		}
	}

	n, err := fetchTo(ctx, src, taxon, path, opts.Progress, logger)
	if err != nil {
		return nil, err
	}
	return &Result{Path: path, Fetched: true, Bytes: n}, nil
}

func fetchTo(ctx context.Context, src Source, taxon catalog.Taxon, path string, reporter progress.Reporter, logger *logging.Logger) (written int64, err error) {
	if reporter == nil {
		reporter = progress.NewNoOpProgress()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, &CacheError{Path: dir, Op: "mkdir", Err: err}
	}

	start := time.Now()
	body, size, err := src.Open(ctx, taxon)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch %s: %w", src.Describe(taxon), err)
	}
	defer body.Close()

	logger.Info().
		Str("taxon", string(taxon)).
		Str("source", src.Describe(taxon)).
		Int64("bytes", size).
		Msg("Fetching catalog")

	if err := diskspace.CheckAvailableSpace(path, size, constants.DiskSpaceSafetyMargin); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(dir, constants.CatalogTempPattern)
	if err != nil {
		return 0, &CacheError{Path: dir, Op: "create", Err: err}
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	reporter.Start(size, string(taxon)+" catalog")
	written, err = io.Copy(tmp, progress.NewProgressReader(&contextReader{ctx: ctx, r: body}, reporter))
	if err != nil {
		reporter.Error(err)
		if ctx.Err() != nil {
			return written, ctx.Err()
		}
		return written, &CacheError{Path: path, Op: "write", Err: err}
	}
	if size >= 0 && written != size {
		err = &CacheError{Path: path, Op: "write", Err: fmt.Errorf("truncated transfer: got %d of %d bytes", written, size)}
		reporter.Error(err)
		return written, err
	}
	reporter.Finish()

	if err = tmp.Close(); err != nil {
		return written, &CacheError{Path: path, Op: "close", Err: err}
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return written, &CacheError{Path: path, Op: "rename", Err: err}
	}

	logger.Info().
		Str("path", path).
		Int64("bytes", written).
		Dur("elapsed", time.Since(start)).
		Msg("Catalog cached")
	return written, nil
}

// contextReader stops a copy once ctx is cancelled, for bodies that do not
// observe the context themselves.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
