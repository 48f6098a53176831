package main

import (
	"os"

	"hangar/internal/cli/cmd"
)

// Version information set via ldflags at build time
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, gitCommit, buildDate)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
