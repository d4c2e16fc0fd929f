package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rescale/ncbi-refdl/internal/catalog"
	"github.com/rescale/ncbi-refdl/internal/config"
	"github.com/rescale/ncbi-refdl/internal/constants"
	"github.com/rescale/ncbi-refdl/internal/fetch"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage ncbi-refdl configuration",
		Long: `Configuration management commands for ncbi-refdl.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  test  - Test access to the catalog source
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigTestCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// prompt prints label with its default and returns the trimmed answer or def.
func prompt(r *bufio.Reader, w io.Writer, label, def string) string {
	if def != "" {
		fmt.Fprintf(w, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(w, "%s: ", label)
	}
	input, _ := r.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return def
	}
	return input
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for ncbi-refdl.

The configuration will be saved to ~/.config/ncbi-refdl/config.csv
(or the --config path).

Use --force to overwrite existing configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := configPath()

			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(out, "Configuration already exists at: %s\n", path)
					fmt.Fprintln(out, "Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			reader := bufio.NewReader(cmd.InOrStdin())
			cfg := config.Default()

			fmt.Fprintln(out, "ncbi-refdl Configuration Setup")
			fmt.Fprintln(out, "==============================")
			fmt.Fprintln(out)

			cfg.CatalogBaseURL = prompt(reader, out, "Catalog base URL", cfg.CatalogBaseURL)
			cfg.CacheDir = prompt(reader, out, "Catalog cache directory (empty = working directory)", "")
			if v, err := strconv.Atoi(prompt(reader, out, "Max retries", strconv.Itoa(cfg.MaxRetries))); err == nil && v > 0 {
				cfg.MaxRetries = v
			}

			if strings.HasPrefix(cfg.CatalogBaseURL, "s3://") {
				cfg.S3Region = prompt(reader, out, "S3 region", cfg.S3Region)
				cfg.S3Endpoint = prompt(reader, out, "S3 endpoint (empty = AWS)", "")
			}

			fmt.Fprintln(out)
			answer := strings.ToLower(prompt(reader, out, "Configure proxy? [y/N]", ""))
			if answer == "y" || answer == "yes" {
				fmt.Fprintln(out, "Proxy modes: no-proxy, system, basic, ntlm")
				cfg.ProxyMode = prompt(reader, out, "Proxy mode", "system")
				if cfg.ProxyMode == "basic" || cfg.ProxyMode == "ntlm" {
					cfg.ProxyHost = prompt(reader, out, "Proxy host", "")
					if v, err := strconv.Atoi(prompt(reader, out, "Proxy port", "8080")); err == nil && v > 0 {
						cfg.ProxyPort = v
					}
					cfg.ProxyUser = prompt(reader, out, "Proxy user (empty = none)", "")
					cfg.NoProxy = prompt(reader, out, "Hosts to bypass (comma-separated)", "")
				}
			}

			if err := config.SaveConfigCSV(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			GetLogger().Info().Str("path", path).Msg("Configuration saved")

			fmt.Fprintln(out)
			fmt.Fprintf(out, "Configuration saved to: %s\n", path)
			if cfg.ProxyUser != "" {
				fmt.Fprintf(out, "Set the proxy password with: export %s=...\n", constants.EnvProxyPassword)
			}
			fmt.Fprintln(out, "Test your configuration with: ncbi-refdl config test")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")

	return cmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the current configuration settings.

This command shows the merged configuration from:
  1. Configuration file (~/.config/ncbi-refdl/config.csv)
  2. Environment variables (NCBI_REFDL_CATALOG_URL, NCBI_REFDL_CACHE_DIR,
     NCBI_REFDL_PROXY_PASSWORD)

Priority: flags > environment > config file > defaults`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig("", "")
			if err != nil {
				return err
			}
			printConfig(cmd.OutOrStdout(), cfg, configPath())
			return nil
		},
	}

	return cmd
}

// printConfig writes cfg in the 'config show' layout.
func printConfig(w io.Writer, cfg *config.Config, path string) {
	fmt.Fprintln(w, "Current Configuration")
	fmt.Fprintln(w, "=====================")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Catalog Settings:")
	fmt.Fprintf(w, "  Catalog Base URL: %s\n", cfg.CatalogBaseURL)
	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = "<working directory>"
	}
	fmt.Fprintf(w, "  Cache Directory:  %s\n", cacheDir)
	fmt.Fprintf(w, "  Max Retries:      %d\n", cfg.MaxRetries)
	if strings.HasPrefix(cfg.CatalogBaseURL, "s3://") {
		fmt.Fprintf(w, "  S3 Region:        %s\n", cfg.S3Region)
		if cfg.S3Endpoint != "" {
			fmt.Fprintf(w, "  S3 Endpoint:      %s\n", cfg.S3Endpoint)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Proxy Settings:")
	fmt.Fprintf(w, "  Proxy Mode: %s\n", cfg.ProxyMode)
	if cfg.ProxyHost != "" {
		fmt.Fprintf(w, "  Proxy Host: %s\n", cfg.ProxyHost)
		fmt.Fprintf(w, "  Proxy Port: %d\n", cfg.ProxyPort)
	}
	if cfg.ProxyUser != "" {
		fmt.Fprintf(w, "  Proxy User: %s\n", cfg.ProxyUser)
		// Never display any portion of the password
		if cfg.ProxyPassword != "" {
			fmt.Fprintln(w, "  Proxy Password: <set>")
		} else {
			fmt.Fprintln(w, "  Proxy Password: <not set>")
		}
	}
	if cfg.NoProxy != "" {
		fmt.Fprintf(w, "  No Proxy:   %s\n", cfg.NoProxy)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Configuration file: %s\n", path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(w, "  (file does not exist - using defaults)")
	}
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	var taxonName string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test access to the catalog source",
		Long: `Open a taxon's catalog at the configured source to verify connectivity,
proxy and credentials. Only the response headers are read.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			out := cmd.OutOrStdout()

			taxon, err := catalog.ParseTaxon(taxonName)
			if err != nil {
				return err
			}

			cfg, err := loadConfig("", "")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(GetContext(cmd), 60*time.Second)
			defer cancel()

			src, err := fetch.NewSource(ctx, cfg, logger)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Testing %s\n", src.Describe(taxon))
			body, size, err := src.Open(ctx, taxon)
			if err != nil {
				logger.Error().Err(err).Msg("Catalog source test failed")
				fmt.Fprintln(out, "Connection FAILED")
				return fmt.Errorf("catalog source test failed: %w", err)
			}
			body.Close()

			logger.Info().Msg("Catalog source test successful")
			fmt.Fprintln(out, "Connection SUCCESSFUL")
			if size >= 0 {
				fmt.Fprintf(out, "  Catalog size: %.2f MB\n", float64(size)/(1024*1024))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&taxonName, "taxon", "t", string(catalog.Viral), taxonUsage())
	_ = cmd.RegisterFlagCompletionFunc("taxon", completeTaxa)

	return cmd
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Long:  `Display the path to the configuration file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := configPath()
			if cfgFile == "" {
				fmt.Fprintln(out, "Default configuration path:")
			} else {
				fmt.Fprintln(out, "Configuration path (from --config flag):")
			}
			fmt.Fprintf(out, "  %s\n", path)

			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintln(out, "  (file does not exist)")
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Create it with: ncbi-refdl config init")
			} else {
				fmt.Fprintln(out, "  (file exists)")
			}
			return nil
		},
	}

	return cmd
}
