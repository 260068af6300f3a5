package venv

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shinji-kodama/venv-setup/internal/model"
	"github.com/shinji-kodama/venv-setup/internal/proc"
)

// Windows is the runtime.GOOS value of the OS family whose environments
// use the Scripts/ layout and get the hidden attribute.
const Windows = "windows"

// PipExecutable is the package manager whose presence makes an
// environment healthy.
const PipExecutable = "pip"

// Logf receives progress messages. It is never nil on a Manager returned
// by NewManager.
type Logf func(format string, args ...any)

// Manager provides environment lifecycle operations for a single host
// interpreter.
type Manager struct {
	// Python is the interpreter invoked as "<Python> -m venv <dir>".
	Python string

	// GOOS selects the platform-specific executable layout and whether
	// the directory is hidden after creation.
	GOOS string

	runner proc.Runner
	logf   Logf

	// hidden reads the directory's hidden attribute. It returns
	// errHiddenUnsupported on builds that cannot read file attributes.
	hidden func(path string) (bool, error)
}

// NewManager creates a Manager for the current platform. A nil logf
// discards progress messages.
func NewManager(python string, runner proc.Runner, logf Logf) *Manager {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Manager{
		Python: python,
		GOOS:   runtime.GOOS,
		runner: runner,
		logf:   logf,
		hidden: isHidden,
	}
}

// ExecutablePath returns the path of an executable inside the environment
// directory for the given OS name.
//
//	windows: <dir>/Scripts/<name>.exe
//	others:  <dir>/bin/<name>
func ExecutablePath(goos, dir, name string) string {
	if goos == Windows {
		return filepath.Join(dir, "Scripts", name+".exe")
	}
	return filepath.Join(dir, "bin", name)
}

// PipPath returns the path of the environment's pip executable.
func (m *Manager) PipPath(dir string) string {
	return ExecutablePath(m.GOOS, dir, PipExecutable)
}

// IsHealthy reports whether the environment's pip executable exists.
// A missing directory is unhealthy.
func (m *Manager) IsHealthy(dir string) bool {
	_, err := os.Stat(m.PipPath(dir))
	return err == nil
}

// Clean removes dir recursively if it exists. It reports whether anything
// was removed. A path that is not a directory is never removed; it and any
// removal failure are FilesystemErrors.
func (m *Manager) Clean(dir string) (bool, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return false, nil
	}
	if !info.IsDir() {
		return false, model.NewKindError(model.KindFilesystem, model.ExitGeneralError,
			fmt.Sprintf("cannot replace %s: not a directory", dir), nil)
	}

	m.logf("# Removing existing virtual environment at: %s", dir)
	if err := os.RemoveAll(dir); err != nil {
		return false, model.NewKindError(model.KindFilesystem, model.ExitGeneralError,
			fmt.Sprintf("failed to remove virtual environment at %s", dir), err)
	}
	return true, nil
}

// Create runs "<python> -m venv <dir>" if dir does not exist, then hides
// the directory on Windows. It reports whether the environment was
// created. A failing interpreter is an EnvironmentCreationError carrying
// the child's exit code.
func (m *Manager) Create(ctx context.Context, dir string) (bool, error) {
	if exists(dir) {
		return false, nil
	}

	err := m.runner.Run(ctx, proc.Command{Name: m.Python, Args: []string{"-m", "venv", dir}})
	if err != nil {
		code := model.ExitGeneralError
		if status, ok := proc.ExitCode(err); ok {
			code = model.ChildExitCode(status)
		}
		return false, model.NewKindError(model.KindEnvironmentCreation, code,
			fmt.Sprintf("failed to create virtual environment at %s", dir), err)
	}
	m.logf("# Created virtual environment at: %s", dir)

	// Hide already logged the outcome.
	_ = m.Hide(ctx, dir)
	return true, nil
}

// Hide sets the hidden attribute on dir when running on Windows. On every
// other OS it does nothing. Failures are logged and returned as
// HideAttributeError.
func (m *Manager) Hide(ctx context.Context, dir string) error {
	if m.GOOS != Windows {
		return nil
	}

	absPath, err := filepath.Abs(dir)
	if err != nil {
		m.logf("# Error hiding: %s: %v", dir, err)
		return model.NewKindError(model.KindHideAttribute, model.ExitGeneralError,
			fmt.Sprintf("failed to resolve %s", dir), err)
	}
	if !exists(absPath) {
		return nil
	}

	// attrib writes its complaints to stderr; capture them for the log.
	var stderr bytes.Buffer
	err = m.runner.Run(ctx, proc.Command{
		Name:   "attrib",
		Args:   []string{"+h", absPath},
		Stdout: &bytes.Buffer{},
		Stderr: &stderr,
	})
	if err != nil {
		if _, ok := proc.ExitCode(err); ok {
			m.logf("# Failed to hide: %s\n%s", absPath, strings.TrimSpace(stderr.String()))
		} else {
			m.logf("# Error hiding: %s: %v", absPath, err)
		}
		return model.NewKindError(model.KindHideAttribute, model.ExitGeneralError,
			fmt.Sprintf("failed to hide %s", absPath), err)
	}

	// attrib can exit 0 without setting the attribute.
	if hidden, err := m.hidden(absPath); err == nil && !hidden {
		m.logf("# Failed to hide: %s\nattribute not set", absPath)
		return model.NewKindError(model.KindHideAttribute, model.ExitGeneralError,
			fmt.Sprintf("failed to hide %s: attribute not set", absPath), nil)
	}

	m.logf("# Successfully hid: %s", absPath)
	return nil
}

// IsHidden reports whether dir carries the hidden attribute. known is
// false off Windows and whenever the attribute cannot be read.
func (m *Manager) IsHidden(dir string) (hidden, known bool) {
	if m.GOOS != Windows {
		return false, false
	}
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return false, false
	}
	hidden, err = m.hidden(absPath)
	if err != nil {
		return false, false
	}
	return hidden, true
}

// EnsureResult reports what Ensure changed on disk.
type EnsureResult struct {
	Removed bool
	Created bool
}

// Ensure makes dir a usable environment. The directory is deleted first
// when clean is set or when it is unhealthy, and is then created only if
// it does not exist.
func (m *Manager) Ensure(ctx context.Context, dir string, clean bool) (EnsureResult, error) {
	var res EnsureResult

	if clean || !m.IsHealthy(dir) {
		removed, err := m.Clean(dir)
		if err != nil {
			return res, err
		}
		res.Removed = removed
	}

	created, err := m.Create(ctx, dir)
	if err != nil {
		return res, err
	}
	res.Created = created
	return res, nil
}

// ActivateHint returns the shell command that activates the environment.
func (m *Manager) ActivateHint(dir string) string {
	if m.GOOS == Windows {
		return dir + `\Scripts\activate`
	}
	return "source " + dir + "/bin/activate"
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
