// Command archem is the reaction command-line tool.
package main

import (
	"os"

	"github.com/turtacn/ARChemistry/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	// cli.Run has already printed the error.
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
