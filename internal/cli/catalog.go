package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rescale/ncbi-refdl/internal/catalog"
	"github.com/rescale/ncbi-refdl/internal/pipeline"
)

// newCatalogCmd creates the 'catalog' command group.
func newCatalogCmd() *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage cached assembly catalogs",
		Long: `Commands for the per-taxon assembly_summary.txt catalogs.

Commands:
  fetch  - Download (or refresh) a taxon's catalog into the cache
  search - List catalog rows matching a genus`,
	}

	catalogCmd.AddCommand(newCatalogFetchCmd())
	catalogCmd.AddCommand(newCatalogSearchCmd())

	return catalogCmd
}

// newCatalogFetchCmd creates the 'catalog fetch' command.
func newCatalogFetchCmd() *cobra.Command {
	var (
		opts       pipeline.FetchOptions
		catalogURL string
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download a taxon's catalog into the cache",
		Long: `Download the taxon's assembly_summary.txt into the cache directory as
<taxon>_assembly_summary.txt. An existing cached copy is kept unless
--refresh is given.`,
		Example: `  ncbi-refdl catalog fetch -t bacteria
  ncbi-refdl catalog fetch -t viral --refresh --cache-dir /data/ncbi`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := catalog.ParseTaxon(opts.Taxon); err != nil {
				return err
			}
			cfg, err := loadConfig(catalogURL, opts.CacheDir)
			if err != nil {
				return err
			}
			opts.CacheDir = cfg.CacheDir

			_, res, err := pipeline.NewEngine(cfg, GetLogger()).Fetch(GetContext(cmd), opts)
			if err != nil {
				return err
			}

			state := "cached"
			if res.Fetched {
				state = "fetched"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %.2f MB)\n", res.Path, state, float64(res.Bytes)/(1024*1024))
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Taxon, "taxon", "t", "", taxonUsage())
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "Download the catalog again even if it is cached")
	cmd.Flags().StringVar(&opts.CacheDir, "cache-dir", "", "Catalog cache directory (default: working directory)")
	cmd.Flags().StringVar(&catalogURL, "catalog-url", "", "Catalog base URL: https://, s3://bucket/prefix or azblob://account/container/prefix")

	_ = cmd.MarkFlagRequired("taxon")
	_ = cmd.RegisterFlagCompletionFunc("taxon", completeTaxa)

	return cmd
}

// newCatalogSearchCmd creates the 'catalog search' command.
func newCatalogSearchCmd() *cobra.Command {
	var (
		opts       pipeline.FetchOptions
		criteria   catalog.Criteria
		catalogURL string
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "List catalog rows matching a genus",
		Long: `Print the catalog rows a 'script' run with the same filters would use,
as a table of accession, assembly level, organism and strain.`,
		Example: `  ncbi-refdl catalog search -t bacteria -g Escherichia --complete-only`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := catalog.ParseTaxon(opts.Taxon); err != nil {
				return err
			}
			cfg, err := loadConfig(catalogURL, opts.CacheDir)
			if err != nil {
				return err
			}
			opts.CacheDir = cfg.CacheDir

			rows, err := pipeline.NewEngine(cfg, GetLogger()).Search(GetContext(cmd), opts, criteria)
			if err != nil {
				return err
			}

			printRows(cmd.OutOrStdout(), rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Taxon, "taxon", "t", "", taxonUsage())
	cmd.Flags().StringVarP(&criteria.Genus, "genus", "g", "", "Substring an organism name must contain (matched literally, case-sensitive)")
	cmd.Flags().BoolVar(&criteria.CompleteOnly, "complete-only", false, "Only 'Complete Genome' and 'Chromosome' assemblies")
	cmd.Flags().BoolVar(&criteria.IncludeExcluded, "include-excluded", false, "Include assemblies excluded from RefSeq")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "Download the catalog again even if it is cached")
	cmd.Flags().StringVar(&opts.CacheDir, "cache-dir", "", "Catalog cache directory (default: working directory)")
	cmd.Flags().StringVar(&catalogURL, "catalog-url", "", "Catalog base URL: https://, s3://bucket/prefix or azblob://account/container/prefix")

	_ = cmd.MarkFlagRequired("taxon")
	_ = cmd.RegisterFlagCompletionFunc("taxon", completeTaxa)

	return cmd
}

// printRows writes rows as a fixed-width table.
func printRows(w io.Writer, rows []catalog.Row) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No matching assemblies.")
		return
	}

	fmt.Fprintf(w, "%-18s %-16s %-50s %s\n", "ACCESSION", "LEVEL", "ORGANISM", "STRAIN")
	for _, row := range rows {
		fmt.Fprintf(w, "%-18s %-16s %-50s %s\n", row.AssemblyAccession, row.AssemblyLevel, truncate(row.OrganismName, 50), row.InfraspecificName)
	}
	fmt.Fprintf(w, "\n%d assemblies\n", len(rows))
}

// truncate shortens s to at most max runes, marking the cut with "...".
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
