// Command reconai runs the reconnaissance orchestration server and its CLI.
package main

import (
	"github.com/anstrom/reconai/cmd/cli"
	"github.com/anstrom/reconai/internal/api/handlers"
)

// Set by ldflags at build time.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	handlers.SetBuildInfo(version, commit, buildTime)
	cli.Execute()
}
