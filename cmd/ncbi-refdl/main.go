// ncbi-refdl generates wget download scripts for NCBI GenBank reference genomes.
package main

import (
	"os"

	"github.com/rescale/ncbi-refdl/internal/cli"
	"github.com/rescale/ncbi-refdl/internal/version"
)

// Version information, overridden via -ldflags at release time
var (
	Version   = "v1.2.0"
	BuildTime = "2026-10-19"
)

func main() {
	// Set version in version package (canonical source for all packages)
	version.Version = Version
	version.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
