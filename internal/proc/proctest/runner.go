// Package proctest provides a scripted proc.Runner for tests.
package proctest

import (
	"context"
	"io"
	"slices"

	"github.com/shinji-kodama/venv-setup/internal/proc"
)

// Call records a single invocation seen by Runner.
type Call struct {
	Name string
	Args []string
}

// Runner is a fake proc.Runner. It records every command and delegates to
// Handler, if set, to decide the outcome and simulate side effects.
type Runner struct {
	Calls []Call

	// Handler is invoked for each command. A nil Handler makes every
	// command succeed.
	Handler func(cmd proc.Command) error
}

// Run implements proc.Runner.
func (r *Runner) Run(_ context.Context, cmd proc.Command) error {
	r.Calls = append(r.Calls, Call{Name: cmd.Name, Args: slices.Clone(cmd.Args)})
	if r.Handler == nil {
		return nil
	}
	return r.Handler(cmd)
}

// Invoked reports whether any recorded call ran the named program.
func (r *Runner) Invoked(name string) bool {
	for _, c := range r.Calls {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Fail returns an error that looks like a child exiting with code.
func Fail(cmd proc.Command, code int) error {
	return &proc.ExitError{Command: cmd.String(), Code: code}
}

// WriteStderr writes msg to the command's captured stderr, if any.
func WriteStderr(cmd proc.Command, msg string) {
	if cmd.Stderr != nil {
		_, _ = io.WriteString(cmd.Stderr, msg)
	}
}
