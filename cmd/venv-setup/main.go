// Package main is the entry point for the venv-setup CLI.
//
// This binary creates (or repairs) a Python virtual environment and
// installs a requirements file into it. It delegates all functionality to
// the internal/cli package, which defines the cobra commands.
//
// Build-time variables (version, commit, date) are injected via ldflags.
// During development, they default to "dev", "none", and "unknown".
package main

import (
	"os"

	"github.com/shinji-kodama/venv-setup/internal/cli"
)

// version, commit, and date are set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

// run wires build-time version info into the CLI package and executes the
// root command, returning the process exit code.
func run() int {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	return cli.Execute(cli.NewRootCommand())
}
