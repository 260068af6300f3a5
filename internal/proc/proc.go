// Package proc runs external programs as blocking child processes.
//
// Every OS-level operation venv-setup delegates to another program (the
// host interpreter's venv module, pip, and the Windows attrib utility) goes
// through the Runner interface defined here. Callers only observe the
// child's exit status, plus whatever they choose to capture from its
// output streams.
//
// Design decisions:
//   - We shell out with os/exec rather than embedding any Python tooling,
//     because the interpreter and pip are opaque collaborators.
//   - Runner is an interface so the lifecycle manager and installer can be
//     tested with proctest.Runner instead of a real interpreter.
//   - A non-zero exit is reported as *ExitError so callers can propagate
//     the child's own exit code verbatim.
package proc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Command describes a single child process invocation.
type Command struct {
	// Name is the program to run. It is resolved through PATH unless it
	// contains a path separator.
	Name string

	// Args are the arguments passed after Name.
	Args []string

	// Stdout and Stderr receive the child's output streams. A nil writer
	// falls back to the runner's default.
	Stdout io.Writer
	Stderr io.Writer
}

// String returns the command line as it would be typed in a shell,
// without any quoting. It is used in log and error messages only.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner executes commands and waits for them to exit.
type Runner interface {
	// Run starts cmd and blocks until it exits. It returns nil on a zero
	// exit status, *ExitError on a non-zero status, and any other error
	// when the process could not be started at all.
	Run(ctx context.Context, cmd Command) error
}

// ExitError reports that a child process ran and exited non-zero.
type ExitError struct {
	// Command is the command line that failed.
	Command string

	// Code is the child's exit status. It is -1 if the child was
	// terminated by a signal.
	Code int

	// Err is the underlying *exec.ExitError, if any.
	Err error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Command, e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode extracts the child exit status from err. The boolean is false
// when err does not carry an exit status (nil, or a start failure).
func ExitCode(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}

// ExecRunner is the Runner backed by os/exec.
type ExecRunner struct {
	// Stdout and Stderr are used for commands that do not capture the
	// corresponding stream themselves.
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner creates a Runner that spawns real processes attached to
// the current process's output streams.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, c Command) error {
	// #nosec G204: the program is the configured interpreter or the pip
	// executable inside the environment directory.
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)

	// Children read from our stdin and, unless the caller captures them,
	// write straight to the terminal so pip's progress output stays visible.
	cmd.Stdin = os.Stdin
	cmd.Stdout = firstWriter(c.Stdout, r.Stdout)
	cmd.Stderr = firstWriter(c.Stderr, r.Stderr)

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Command: c.String(), Code: exitErr.ExitCode(), Err: err}
	}
	return fmt.Errorf("failed to run %s: %w", c.String(), err)
}

func firstWriter(ws ...io.Writer) io.Writer {
	for _, w := range ws {
		if w != nil {
			return w
		}
	}
	return io.Discard
}
