package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rescale/ncbi-refdl/internal/catalog"
	"github.com/rescale/ncbi-refdl/internal/pipeline"
)

// taxonUsage lists the accepted groups for flag help.
func taxonUsage() string {
	names := make([]string, 0, len(catalog.Taxa()))
	for _, t := range catalog.Taxa() {
		names = append(names, string(t))
	}
	return "Taxonomic group (" + strings.Join(names, ", ") + ")"
}

// completeTaxa offers the supported groups for --taxon completion.
func completeTaxa(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var out []string
	for _, t := range catalog.Taxa() {
		if strings.HasPrefix(string(t), strings.ToLower(toComplete)) {
			out = append(out, string(t))
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// newScriptCmd creates the 'script' command.
func newScriptCmd() *cobra.Command {
	var (
		opts       pipeline.ScriptOptions
		catalogURL string
	)

	cmd := &cobra.Command{
		Use:   "script",
		Short: "Write a wget download script for matching genomes",
		Long: `Filter the taxon's assembly catalog by genus and write a bash script with
one "wget -O <filename> <url>" line per matching assembly.

By default only assemblies not excluded from RefSeq are kept, and their URLs
point at the RefSeq (GCF) copy. --include-excluded keeps every assembly and
leaves URLs on GenBank (GCA).

Rows whose ftp_path cannot be turned into a URL are skipped with a warning;
--strict makes the first such row fail the run.

The script is written to <prefix>_download_script.sh (download_script.sh
without a prefix). --dry-run prints it to stdout instead.`,
		Example: `  ncbi-refdl script -t bacteria -g Escherichia -o ecoli
  ncbi-refdl script -t viral -g Influenza --complete-only -m
  ncbi-refdl script -t fungi -g Aspergillus --include-excluded --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := catalog.ParseTaxon(opts.Taxon); err != nil {
				return err
			}
			logger := GetLogger()

			cfg, err := loadConfig(catalogURL, opts.CacheDir)
			if err != nil {
				return err
			}
			opts.CacheDir = cfg.CacheDir
			opts.DryRunOut = cmd.OutOrStdout()

			res, err := pipeline.NewEngine(cfg, logger).Run(GetContext(cmd), opts)
			if err != nil {
				return err
			}

			if !opts.DryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d download commands to %s\n", len(res.Records), res.ScriptPath)
				if len(res.Skipped) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Skipped %d rows with an unusable ftp_path (run with --verbose for details)\n", len(res.Skipped))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Taxon, "taxon", "t", "", taxonUsage())
	cmd.Flags().StringVarP(&opts.Genus, "genus", "g", "", "Substring an organism name must contain (matched literally, case-sensitive)")
	cmd.Flags().StringVarP(&opts.OutputPrefix, "output", "o", "", "Output script prefix: writes <prefix>_download_script.sh")
	cmd.Flags().BoolVarP(&opts.UseHTTPS, "https", "m", false, "Use https:// instead of the catalog's ftp:// scheme")
	cmd.Flags().BoolVar(&opts.CompleteOnly, "complete-only", false, "Only 'Complete Genome' and 'Chromosome' assemblies")
	cmd.Flags().BoolVar(&opts.IncludeExcluded, "include-excluded", false, "Include assemblies excluded from RefSeq (keeps GCA URLs)")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "Download the catalog again even if it is cached")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Fail on the first row whose URL cannot be derived")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the script to stdout instead of writing a file")
	cmd.Flags().StringVar(&opts.CacheDir, "cache-dir", "", "Catalog cache directory (default: working directory)")
	cmd.Flags().StringVar(&catalogURL, "catalog-url", "", "Catalog base URL: https://, s3://bucket/prefix or azblob://account/container/prefix")

	_ = cmd.MarkFlagRequired("taxon")
	_ = cmd.RegisterFlagCompletionFunc("taxon", completeTaxa)

	return cmd
}
