// Package model defines the domain types and value objects for the
// venv-setup CLI.
//
// This package contains pure data structures with no external dependencies.
// Options and Report are transient, process-local values: they are built
// once per invocation and discarded at exit. The only thing the tool leaves
// behind is the environment directory itself.
//
// The package also defines exit codes (ExitCode), the error taxonomy
// (ErrorKind), and a custom error type (CLIError) that carries both, so the
// CLI layer can translate any failure into the right process exit code.
package model
