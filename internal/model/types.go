package model

import (
	"errors"
	"fmt"
)

// Options is the resolved configuration for a single provisioning run.
// It is assembled from defaults, an optional config file, and command-line
// flags, and is not modified afterwards.
type Options struct {
	// VenvDir is the path of the virtual environment directory.
	VenvDir string `json:"venvDir"`

	// ReqFile is the path of the requirements listing passed to pip.
	ReqFile string `json:"reqFile"`

	// Python is the host interpreter used to run "-m venv".
	Python string `json:"python"`

	// Clean forces the environment to be deleted and recreated.
	Clean bool `json:"clean"`

	// UpgradePip runs "pip install --upgrade pip" before installing
	// requirements.
	UpgradePip bool `json:"upgradePip"`
}

// Validate checks that the path fields are usable.
func (o *Options) Validate() error {
	if o.VenvDir == "" {
		return fmt.Errorf("venv directory must not be empty")
	}
	if o.ReqFile == "" {
		return fmt.Errorf("requirements file must not be empty")
	}
	if o.Python == "" {
		return fmt.Errorf("python interpreter must not be empty")
	}
	return nil
}

// Report summarizes what a provisioning run did. It is printed as text or
// JSON once the run completes.
type Report struct {
	VenvDir      string `json:"venvDir"`
	Requirements string `json:"requirements"`

	// Removed is true when an existing directory was deleted, either
	// because --clean was given or because it had no pip executable.
	Removed bool `json:"removed"`

	// Created is true when "python -m venv" was run during this invocation.
	Created bool `json:"created"`

	UpgradedPip bool `json:"upgradedPip"`

	// Activate is the shell command that activates the environment.
	Activate string `json:"activate"`
}

// HealthReport is the result of the check subcommand.
type HealthReport struct {
	VenvDir string `json:"venvDir"`
	Healthy bool   `json:"healthy"`
	Pip     string `json:"pip"`

	// Hidden is the directory's hidden attribute. It is only reported on
	// Windows, and only when the attribute could be read.
	Hidden *bool `json:"hidden,omitempty"`
}

// ExitCode defines standard CLI exit codes. Failures of child processes
// are reported with the child's own exit code instead of one of these.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitMissingFile indicates the requirements file does not exist.
	// It shares its value with ExitGeneralError.
	ExitMissingFile ExitCode = 1

	// ExitEnvUnhealthy is returned by the check subcommand when the
	// environment lacks its pip executable.
	ExitEnvUnhealthy ExitCode = 2
)

// ErrorKind classifies a CLIError.
type ErrorKind string

const (
	// KindMissingFile means a required input file is absent. The user can
	// fix it and re-run.
	KindMissingFile ErrorKind = "MissingFileError"

	// KindEnvironmentCreation means "python -m venv" exited non-zero or
	// could not be started.
	KindEnvironmentCreation ErrorKind = "EnvironmentCreationError"

	// KindInstall means a pip invocation exited non-zero.
	KindInstall ErrorKind = "InstallError"

	// KindFilesystem means deleting the environment directory failed.
	KindFilesystem ErrorKind = "FilesystemError"

	// KindHideAttribute means setting the hidden attribute failed. It is
	// cosmetic and never terminates a run.
	KindHideAttribute ErrorKind = "HideAttributeError"

	// KindConfig means the options could not be resolved, e.g. a malformed
	// config file.
	KindConfig ErrorKind = "ConfigError"
)

// String returns the string representation of ErrorKind.
func (k ErrorKind) String() string {
	return string(k)
}

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Kind classifies the failure. It may be empty for generic errors.
	Kind ErrorKind

	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// NewKindError creates a classified CLIError. err may be nil.
func NewKindError(kind ErrorKind, code ExitCode, message string, err error) *CLIError {
	return &CLIError{Kind: kind, Code: code, Message: message, Err: err}
}

// ChildExitCode converts a child process exit status into an ExitCode.
// Statuses that cannot be propagated verbatim (zero, or -1 for a child
// killed by a signal) become ExitGeneralError so a failure never exits 0.
func ChildExitCode(status int) ExitCode {
	if status <= 0 {
		return ExitGeneralError
	}
	return ExitCode(status)
}

// KindOf returns the ErrorKind of the first CLIError in err's chain, or
// an empty kind if there is none.
func KindOf(err error) ErrorKind {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Kind
	}
	return ""
}

// IsKind reports whether err's chain contains a CLIError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// ExitCodeOf returns the exit code the process should terminate with
// for err. A nil error maps to ExitSuccess and an unclassified error to
// ExitGeneralError.
func ExitCodeOf(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	return ExitGeneralError
}
