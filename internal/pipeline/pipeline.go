// Package pipeline runs the catalog-to-script workflow:
// taxon check, catalog cache, filter, derivation and script emission.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rescale/ncbi-refdl/internal/catalog"
	"github.com/rescale/ncbi-refdl/internal/config"
	"github.com/rescale/ncbi-refdl/internal/derive"
	"github.com/rescale/ncbi-refdl/internal/fetch"
	"github.com/rescale/ncbi-refdl/internal/logging"
	"github.com/rescale/ncbi-refdl/internal/progress"
	"github.com/rescale/ncbi-refdl/internal/script"
)

// SourceFactory builds the catalog source. It is only called when a catalog
// actually has to be fetched.
type SourceFactory func(ctx context.Context) (fetch.Source, error)

// Engine runs pipeline operations against one configuration.
type Engine struct {
	config    *config.Config
	logger    *logging.Logger
	newSource SourceFactory
	progress  progress.Reporter
}

// NewEngine creates an engine that fetches from cfg.CatalogBaseURL.
func NewEngine(cfg *config.Config, logger *logging.Logger) *Engine {
	return &Engine{
		config: cfg,
		logger: logger,
		newSource: func(ctx context.Context) (fetch.Source, error) {
			return fetch.NewSource(ctx, cfg, logger)
		},
		progress: progress.NewReporter(os.Stderr),
	}
}

// WithSource replaces the catalog source factory.
func (e *Engine) WithSource(f SourceFactory) *Engine {
	e.newSource = f
	return e
}

// WithProgress replaces the fetch progress reporter.
func (e *Engine) WithProgress(r progress.Reporter) *Engine {
	e.progress = r
	return e
}

// FetchOptions select which catalog to make available locally.
type FetchOptions struct {
	Taxon    string
	Refresh  bool
	CacheDir string // overrides the configured cache directory when set
}

// ScriptOptions describe one download-script run.
type ScriptOptions struct {
	FetchOptions
	Genus           string
	OutputPrefix    string
	UseHTTPS        bool
	CompleteOnly    bool
	IncludeExcluded bool
	Strict          bool      // abort on the first row whose URL cannot be derived
	DryRun          bool      // write the script to DryRunOut instead of a file
	DryRunOut       io.Writer // defaults to os.Stdout
}

// Result summarizes a script run.
type Result struct {
	Taxon       catalog.Taxon
	CatalogPath string
	Fetched     bool
	Rows        int
	Matched     int
	Records     []derive.Record
	Skipped     []error
	ScriptPath  string // empty on dry run
}

// Fetch validates the taxon and ensures its catalog is cached.
func (e *Engine) Fetch(ctx context.Context, opts FetchOptions) (catalog.Taxon, *fetch.Result, error) {
	taxon, err := catalog.ParseTaxon(opts.Taxon)
	if err != nil {
		return "", nil, err
	}

	cacheDir := e.config.CacheDir
	if opts.CacheDir != "" {
		cacheDir = opts.CacheDir
	}

	src := &lazySource{build: e.newSource}
	res, err := fetch.EnsureCatalog(ctx, src, taxon, fetch.Options{
		CacheDir: cacheDir,
		Refresh:  opts.Refresh,
		Progress: e.progress,
	}, e.logger)
	if err != nil {
		return taxon, nil, err
	}
	return taxon, res, nil
}

// Search returns the catalog rows that match the criteria, in catalog order.
func (e *Engine) Search(ctx context.Context, opts FetchOptions, criteria catalog.Criteria) ([]catalog.Row, error) {
	_, res, err := e.Fetch(ctx, opts)
	if err != nil {
		return nil, err
	}

	rows, err := catalog.ReadFile(res.Path)
	if err != nil {
		return nil, err
	}
	matched := catalog.Filter(rows, criteria)

	e.logger.Debug().
		Str("genus", criteria.Genus).
		Int("rows", len(rows)).
		Int("matched", len(matched)).
		Msg("Catalog filtered")
	return matched, nil
}

// Run produces the download script for opts. The taxon is validated before
// any file or network activity.
func (e *Engine) Run(ctx context.Context, opts ScriptOptions) (*Result, error) {
	start := time.Now()

	taxon, cached, err := e.Fetch(ctx, opts.FetchOptions)
	if err != nil {
		return nil, err
	}

	rows, err := catalog.ReadFile(cached.Path)
	if err != nil {
		return nil, err
	}

	criteria := catalog.Criteria{
		Genus:           opts.Genus,
		IncludeExcluded: opts.IncludeExcluded,
		CompleteOnly:    opts.CompleteOnly,
	}
	matched := catalog.Filter(rows, criteria)

	log := e.logger.With().Str("taxon", string(taxon)).Str("genus", opts.Genus).Logger()
	log.Info().Int("rows", len(rows)).Int("matched", len(matched)).Msg("Catalog filtered")

	policy := derive.PolicySkip
	if opts.Strict {
		policy = derive.PolicyAbort
	}
	records, skipped, err := derive.All(matched, derive.Options{
		UseHTTPS:        opts.UseHTTPS,
		IncludeExcluded: opts.IncludeExcluded,
		Policy:          policy,
	})
	if err != nil {
		return nil, err
	}
	for _, skipErr := range skipped {
		log.Warn().Err(skipErr).Msg("Skipping row")
	}
	if !opts.IncludeExcluded {
		for _, row := range matched {
			if !row.HasRefSeqPair() {
				log.Debug().
					Str("accession", row.AssemblyAccession).
					Msg("No paired RefSeq assembly; derived GCF URL may not exist")
			}
		}
	}

	result := &Result{
		Taxon:       taxon,
		CatalogPath: cached.Path,
		Fetched:     cached.Fetched,
		Rows:        len(rows),
		Matched:     len(matched),
		Records:     records,
		Skipped:     skipped,
	}

	if opts.DryRun {
		out := opts.DryRunOut
		if out == nil {
			out = os.Stdout
		}
		if err := script.Write(out, records); err != nil {
			return nil, &script.WriteError{Path: "<stdout>", Err: err}
		}
	} else {
		result.ScriptPath = script.Path(opts.OutputPrefix)
		if err := script.Emit(result.ScriptPath, records); err != nil {
			return nil, err
		}
	}

	log.Info().
		Int("entries", len(records)).
		Int("skipped", len(skipped)).
		Str("path", result.ScriptPath).
		Dur("elapsed", time.Since(start)).
		Msg("Download script written")
	return result, nil
}

// lazySource defers building the real source until a fetch is needed, so a
// cached catalog never touches the network (proxy warmup included).
type lazySource struct {
	build SourceFactory
	once  sync.Once
	src   fetch.Source
	err   error
}

func (l *lazySource) Open(ctx context.Context, taxon catalog.Taxon) (io.ReadCloser, int64, error) {
	l.once.Do(func() {
		l.src, l.err = l.build(ctx)
	})
	if l.err != nil {
		return nil, 0, fmt.Errorf("failed to set up catalog source: %w", l.err)
	}
	return l.src.Open(ctx, taxon)
}

func (l *lazySource) Describe(taxon catalog.Taxon) string {
	if l.src == nil {
		return "catalog source for " + string(taxon)
	}
	return l.src.Describe(taxon)
}
