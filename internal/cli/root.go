// Package cli provides the command-line interface for ncbi-refdl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rescale/ncbi-refdl/internal/config"
	"github.com/rescale/ncbi-refdl/internal/logging"
	"github.com/rescale/ncbi-refdl/internal/pathutil"
	"github.com/rescale/ncbi-refdl/internal/version"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	debug   bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ncbi-refdl",
		Short: "Generate download scripts for NCBI GenBank reference genomes",
		Long: `ncbi-refdl ` + version.Version + ` - Built: ` + version.BuildTime + `
Generate a wget batch script for the genomes of one NCBI GenBank taxonomic
group (viral, bacteria, archaea, protozoa, fungi) whose organism name contains
a genus substring.

The group's assembly_summary.txt catalog is downloaded once and cached; later
runs reuse the cached copy unless --refresh is given.

Examples:
  ncbi-refdl script -t bacteria -g Escherichia -o ecoli
  ncbi-refdl script -t viral -g Influenza --complete-only --https
  ncbi-refdl catalog search -t fungi -g Aspergillus`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize logger
			logger = logging.NewLogger(cmd.ErrOrStderr())
			if verbose || debug {
				logging.SetGlobalLevel(-1) // Debug level (zerolog.DebugLevel)
			} else {
				logging.SetGlobalLevel(1) // Info level
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	completionCmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Enable tab-completion for ncbi-refdl commands",
		Long: `Generate shell completion scripts to enable tab-completion for ncbi-refdl.

Tab-completion lets you press Tab to:
  - Auto-complete command names (e.g., "ncbi-refdl sc<Tab>" -> "script")
  - Auto-complete flag names (e.g., "ncbi-refdl script --<Tab>" -> shows all flags)
  - See available subcommands

QUICK START:

  macOS with zsh (default on modern Macs):
    mkdir -p ~/.zsh/completions
    ncbi-refdl completion zsh > ~/.zsh/completions/_ncbi-refdl
    # Then add to ~/.zshrc: fpath=(~/.zsh/completions $fpath)
    # Restart terminal

  macOS with bash:
    ncbi-refdl completion bash > $(brew --prefix)/etc/bash_completion.d/ncbi-refdl
    # Restart terminal

  Linux with bash:
    ncbi-refdl completion bash | sudo tee /etc/bash_completion.d/ncbi-refdl
    # Restart terminal

For detailed instructions, use: ncbi-refdl completion [shell] --help`,
	}
	rootCmd.AddCommand(completionCmd)

	// Add subcommands for each shell
	completionCmd.AddCommand(&cobra.Command{
		Use:   "bash",
		Short: "Generate bash completion script",
		Long: `Generate the autocompletion script for bash.

SETUP INSTRUCTIONS:

macOS:
  1. Install bash-completion (if not already installed):
       brew install bash-completion@2

  2. Generate completion script:
       ncbi-refdl completion bash > $(brew --prefix)/etc/bash_completion.d/ncbi-refdl

  3. Add to ~/.bash_profile (if not already there):
       [[ -r "$(brew --prefix)/etc/profile.d/bash_completion.sh" ]] && . "$(brew --prefix)/etc/profile.d/bash_completion.sh"

  4. Restart your terminal

Linux:
  1. Install bash-completion (if not already installed):
       # Ubuntu/Debian:
       sudo apt-get install bash-completion
       # RHEL/CentOS:
       sudo yum install bash-completion

  2. Generate completion script:
       ncbi-refdl completion bash | sudo tee /etc/bash_completion.d/ncbi-refdl

  3. Restart your terminal

QUICK TEST (temporary, current session only):
  source <(ncbi-refdl completion bash)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenBashCompletion(cmd.OutOrStdout())
		},
	})

	completionCmd.AddCommand(&cobra.Command{
		Use:   "zsh",
		Short: "Generate zsh completion script",
		Long: `Generate the autocompletion script for zsh.

SETUP INSTRUCTIONS:

macOS (modern Macs use zsh by default):
  1. Create completions directory:
       mkdir -p ~/.zsh/completions

  2. Generate completion script:
       ncbi-refdl completion zsh > ~/.zsh/completions/_ncbi-refdl

  3. Add to ~/.zshrc (if not already there):
       fpath=(~/.zsh/completions $fpath)
       autoload -Uz compinit && compinit

  4. Restart your terminal (or run: source ~/.zshrc)

Linux:
  1. Generate completion script:
       ncbi-refdl completion zsh > "${fpath[1]}/_ncbi-refdl"

  2. Restart your terminal

QUICK TEST (temporary, current session only):
  source <(ncbi-refdl completion zsh)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenZshCompletion(cmd.OutOrStdout())
		},
	})

	completionCmd.AddCommand(&cobra.Command{
		Use:   "fish",
		Short: "Generate fish completion script",
		Long: `Generate the autocompletion script for fish.

SETUP INSTRUCTIONS:

  1. Generate completion script:
       ncbi-refdl completion fish > ~/.config/fish/completions/ncbi-refdl.fish

  2. Restart your terminal

QUICK TEST (temporary, current session only):
  ncbi-refdl completion fish | source`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
		},
	})

	completionCmd.AddCommand(&cobra.Command{
		Use:   "powershell",
		Short: "Generate PowerShell completion script",
		Long: `Generate the autocompletion script for PowerShell.

SETUP INSTRUCTIONS (Windows):

  1. Find your PowerShell profile location:
       $PROFILE

  2. Generate completion script:
       ncbi-refdl completion powershell >> $PROFILE

  3. Restart PowerShell

QUICK TEST (temporary, current session only):
  ncbi-refdl completion powershell | Out-String | Invoke-Expression`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenPowerShellCompletion(cmd.OutOrStdout())
		},
	})

	// Disable default completion command (we're adding our own above)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	// Create a context that can be cancelled by signals
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	// Set up signal handling for graceful cancellation
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			// Channel close yields nil and ends the loop
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.ExecuteContext(rootContext)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	// Clean up signal handler
	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newScriptCmd())
	rootCmd.AddCommand(newCatalogCmd())
	rootCmd.AddCommand(newConfigCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the command's context, which is cancelled when the user
// presses Ctrl+C.
func GetContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	if rootContext != nil {
		return rootContext
	}
	return context.Background()
}

// configPath returns the --config path or the default location.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.GetDefaultConfigPath()
}

// loadConfig loads the config file and applies environment and flag overrides.
// Priority: flags > environment > config file > defaults
func loadConfig(catalogURL, cacheDir string) (*config.Config, error) {
	cfg, err := config.LoadConfigCSV(configPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	for _, w := range cfg.Warnings {
		GetLogger().Warn().Str("config", configPath()).Msg(w)
	}
	cfg.MergeWithEnv()
	cfg.MergeWithFlags(catalogURL, cacheDir)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.CacheDir != "" {
		dir, err := pathutil.ResolveAbsolutePath(cfg.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("invalid cache directory %q: %w", cfg.CacheDir, err)
		}
		cfg.CacheDir = dir
	}
	return cfg, nil
}
