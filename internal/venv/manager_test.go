package venv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/venv-setup/internal/model"
	"github.com/shinji-kodama/venv-setup/internal/proc"
	"github.com/shinji-kodama/venv-setup/internal/proc/proctest"
)

// newTestManager returns a Manager for goos whose fake interpreter lays
// out a minimal environment (just the pip executable) on "-m venv", and
// a slice that collects logged progress lines.
func newTestManager(t *testing.T, goos string) (*Manager, *proctest.Runner, *[]string) {
	t.Helper()

	var logs []string
	runner := &proctest.Runner{}
	m := NewManager("python3", runner, func(format string, args ...any) {
		logs = append(logs, fmt.Sprintf(format, args...))
	})
	m.GOOS = goos

	// A successful attrib +h marks the path hidden for m.hidden.
	hidden := map[string]bool{}
	m.hidden = func(path string) (bool, error) { return hidden[path], nil }

	runner.Handler = func(cmd proc.Command) error {
		switch {
		case cmd.Name == "python3" && len(cmd.Args) == 3 && cmd.Args[1] == "venv":
			writePip(t, goos, cmd.Args[2])
		case cmd.Name == "attrib" && len(cmd.Args) == 2 && cmd.Args[0] == "+h":
			hidden[cmd.Args[1]] = true
		}
		return nil
	}
	return m, runner, &logs
}

// writePip creates the pip executable for goos inside dir.
func writePip(t *testing.T, goos, dir string) {
	t.Helper()

	pip := ExecutablePath(goos, dir, PipExecutable)
	require.NoError(t, os.MkdirAll(filepath.Dir(pip), 0o755))
	require.NoError(t, os.WriteFile(pip, []byte("#!/bin/sh\n"), 0o755))
}

func TestExecutablePath(t *testing.T) {
	assert.Equal(t, filepath.Join(".venv", "bin", "pip"), ExecutablePath("linux", ".venv", "pip"))
	assert.Equal(t, filepath.Join(".venv", "bin", "pip"), ExecutablePath("darwin", ".venv", "pip"))
	assert.Equal(t, filepath.Join(".venv", "Scripts", "pip.exe"), ExecutablePath("windows", ".venv", "pip"))
}

// TestIsHealthy verifies that health depends only on the pip executable.
func TestIsHealthy(t *testing.T) {
	m, _, _ := newTestManager(t, "linux")
	dir := filepath.Join(t.TempDir(), "env")

	assert.False(t, m.IsHealthy(dir), "missing directory is unhealthy")

	require.NoError(t, os.MkdirAll(dir, 0o755))
	assert.False(t, m.IsHealthy(dir), "directory without pip is unhealthy")

	writePip(t, "linux", dir)
	assert.True(t, m.IsHealthy(dir))
}

func TestClean(t *testing.T) {
	m, runner, logs := newTestManager(t, "linux")
	dir := filepath.Join(t.TempDir(), "env")

	removed, err := m.Clean(dir)
	require.NoError(t, err)
	assert.False(t, removed, "nothing to remove")
	assert.Empty(t, *logs)

	writePip(t, "linux", dir)
	removed, err = m.Clean(dir)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoDirExists(t, dir)
	assert.Equal(t, []string{"# Removing existing virtual environment at: " + dir}, *logs)
	assert.Empty(t, runner.Calls, "Clean never spawns a process")
}

// TestClean_NotADirectory verifies that a regular file at the environment
// path is left in place and reported as a FilesystemError.
func TestClean_NotADirectory(t *testing.T) {
	m, runner, logs := newTestManager(t, "linux")
	path := filepath.Join(t.TempDir(), "afile")
	require.NoError(t, os.WriteFile(path, []byte("keep me"), 0o644))

	removed, err := m.Clean(path)
	require.Error(t, err)
	assert.False(t, removed)
	assert.Equal(t, model.KindFilesystem, model.KindOf(err))
	assert.Equal(t, model.ExitGeneralError, model.ExitCodeOf(err))
	assert.FileExists(t, path)
	assert.Empty(t, *logs)

	_, err = m.Ensure(context.Background(), path, false)
	require.Error(t, err)
	assert.Equal(t, model.KindFilesystem, model.KindOf(err))
	assert.Empty(t, runner.Calls, "no interpreter runs over a regular file")

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "keep me", string(data))
}

// TestClean_PermissionDenied verifies that a removal failure is a fatal
// FilesystemError.
func TestClean_PermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("requires a non-root POSIX user")
	}

	m, _, _ := newTestManager(t, "linux")
	parent := t.TempDir()
	dir := filepath.Join(parent, "env")
	writePip(t, "linux", dir)

	// A read-only bin/ keeps its entries from being unlinked.
	binDir := filepath.Join(dir, "bin")
	require.NoError(t, os.Chmod(binDir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(binDir, 0o755) })

	_, err := m.Clean(dir)
	require.Error(t, err)
	assert.Equal(t, model.KindFilesystem, model.KindOf(err))
	assert.Equal(t, model.ExitGeneralError, model.ExitCodeOf(err))
}

func TestCreate(t *testing.T) {
	m, runner, logs := newTestManager(t, "linux")
	dir := filepath.Join(t.TempDir(), "env")

	created, err := m.Create(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, m.IsHealthy(dir))

	require.Len(t, runner.Calls, 1)
	assert.Equal(t, proctest.Call{Name: "python3", Args: []string{"-m", "venv", dir}}, runner.Calls[0])
	assert.Equal(t, []string{"# Created virtual environment at: " + dir}, *logs)
}

func TestCreate_ExistingDirectory(t *testing.T) {
	m, runner, _ := newTestManager(t, "linux")
	dir := t.TempDir()

	created, err := m.Create(context.Background(), dir)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Empty(t, runner.Calls)
}

// TestCreate_InterpreterFails verifies that the interpreter's exit code is
// carried by the EnvironmentCreationError.
func TestCreate_InterpreterFails(t *testing.T) {
	m, runner, _ := newTestManager(t, "linux")
	runner.Handler = func(cmd proc.Command) error {
		return proctest.Fail(cmd, 3)
	}

	_, err := m.Create(context.Background(), filepath.Join(t.TempDir(), "env"))
	require.Error(t, err)
	assert.Equal(t, model.KindEnvironmentCreation, model.KindOf(err))
	assert.Equal(t, model.ExitCode(3), model.ExitCodeOf(err))
}

func TestCreate_InterpreterMissing(t *testing.T) {
	m, runner, _ := newTestManager(t, "linux")
	runner.Handler = func(proc.Command) error {
		return fmt.Errorf("failed to run python3: executable file not found in $PATH")
	}

	_, err := m.Create(context.Background(), filepath.Join(t.TempDir(), "env"))
	require.Error(t, err)
	assert.Equal(t, model.KindEnvironmentCreation, model.KindOf(err))
	assert.Equal(t, model.ExitGeneralError, model.ExitCodeOf(err))
}

// TestHide_NonWindows verifies that hiding never spawns a process outside
// the Windows OS family.
func TestHide_NonWindows(t *testing.T) {
	for _, goos := range []string{"linux", "darwin", "freebsd"} {
		t.Run(goos, func(t *testing.T) {
			m, runner, logs := newTestManager(t, goos)
			dir := filepath.Join(t.TempDir(), "env")

			_, err := m.Create(context.Background(), dir)
			require.NoError(t, err)
			require.NoError(t, m.Hide(context.Background(), dir))

			assert.False(t, runner.Invoked("attrib"))
			assert.NotContains(t, *logs, "# Successfully hid: "+dir)
		})
	}
}

func TestHide_Windows(t *testing.T) {
	m, runner, logs := newTestManager(t, Windows)
	dir := filepath.Join(t.TempDir(), "env")

	created, err := m.Create(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, created)

	require.Len(t, runner.Calls, 2)
	assert.Equal(t, proctest.Call{Name: "attrib", Args: []string{"+h", dir}}, runner.Calls[1])
	assert.Contains(t, *logs, "# Successfully hid: "+dir)
}

// TestHide_WindowsFailureIsCosmetic verifies that a failing attrib call is
// logged with its stderr but does not fail Create.
func TestHide_WindowsFailureIsCosmetic(t *testing.T) {
	m, runner, logs := newTestManager(t, Windows)
	create := runner.Handler
	runner.Handler = func(cmd proc.Command) error {
		if cmd.Name == "attrib" {
			proctest.WriteStderr(cmd, "Access denied - "+cmd.Args[1]+"\n")
			return proctest.Fail(cmd, 5)
		}
		return create(cmd)
	}
	dir := filepath.Join(t.TempDir(), "env")

	created, err := m.Create(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Contains(t, *logs, "# Failed to hide: "+dir+"\nAccess denied - "+dir)

	hideErr := m.Hide(context.Background(), dir)
	assert.Equal(t, model.KindHideAttribute, model.KindOf(hideErr))
}

// TestHide_WindowsAttributeNotSet verifies that attrib exiting 0 without
// setting the attribute is still reported as a failed hide.
func TestHide_WindowsAttributeNotSet(t *testing.T) {
	m, runner, logs := newTestManager(t, Windows)
	m.hidden = func(string) (bool, error) { return false, nil }
	dir := filepath.Join(t.TempDir(), "env")

	created, err := m.Create(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, runner.Invoked("attrib"))
	assert.Contains(t, *logs, "# Failed to hide: "+dir+"\nattribute not set")
	assert.NotContains(t, *logs, "# Successfully hid: "+dir)

	err = m.Hide(context.Background(), dir)
	assert.Equal(t, model.KindHideAttribute, model.KindOf(err))
}

// TestHide_WindowsUnreadableAttribute verifies that an attribute that
// cannot be read does not turn a successful attrib into a failure.
func TestHide_WindowsUnreadableAttribute(t *testing.T) {
	m, _, logs := newTestManager(t, Windows)
	m.hidden = func(string) (bool, error) { return false, errHiddenUnsupported }
	dir := t.TempDir()

	require.NoError(t, m.Hide(context.Background(), dir))
	assert.Contains(t, *logs, "# Successfully hid: "+dir)
}

func TestIsHidden(t *testing.T) {
	t.Run("not known off windows", func(t *testing.T) {
		m, _, _ := newTestManager(t, "linux")
		m.hidden = func(string) (bool, error) { return true, nil }

		_, known := m.IsHidden(t.TempDir())
		assert.False(t, known)
	})

	t.Run("reflects attrib on windows", func(t *testing.T) {
		m, _, _ := newTestManager(t, Windows)
		dir := t.TempDir()

		hidden, known := m.IsHidden(dir)
		assert.True(t, known)
		assert.False(t, hidden)

		require.NoError(t, m.Hide(context.Background(), dir))
		hidden, known = m.IsHidden(dir)
		assert.True(t, known)
		assert.True(t, hidden)
	})

	t.Run("unknown when unreadable", func(t *testing.T) {
		m, _, _ := newTestManager(t, Windows)
		m.hidden = func(string) (bool, error) { return false, errHiddenUnsupported }

		_, known := m.IsHidden(t.TempDir())
		assert.False(t, known)
	})
}

func TestEnsure(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(t *testing.T, dir string)
		clean       bool
		wantRemoved bool
		wantCreated bool
		wantCalls   int
	}{
		{
			name:        "absent directory is created",
			setup:       func(*testing.T, string) {},
			wantCreated: true,
			wantCalls:   1,
		},
		{
			name:      "healthy directory is left alone",
			setup:     func(t *testing.T, dir string) { writePip(t, "linux", dir) },
			wantCalls: 0,
		},
		{
			name: "unhealthy directory is rebuilt without clean",
			setup: func(t *testing.T, dir string) {
				require.NoError(t, os.MkdirAll(filepath.Join(dir, "lib"), 0o755))
			},
			wantRemoved: true,
			wantCreated: true,
			wantCalls:   1,
		},
		{
			name:        "clean rebuilds a healthy directory",
			setup:       func(t *testing.T, dir string) { writePip(t, "linux", dir) },
			clean:       true,
			wantRemoved: true,
			wantCreated: true,
			wantCalls:   1,
		},
		{
			name:        "clean on absent directory only creates",
			setup:       func(*testing.T, string) {},
			clean:       true,
			wantCreated: true,
			wantCalls:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, runner, _ := newTestManager(t, "linux")
			dir := filepath.Join(t.TempDir(), "env")
			tt.setup(t, dir)

			// A marker file shows whether the directory was really replaced.
			marker := filepath.Join(dir, "marker")
			if exists(dir) {
				require.NoError(t, os.WriteFile(marker, nil, 0o644))
			}

			res, err := m.Ensure(context.Background(), dir, tt.clean)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRemoved, res.Removed)
			assert.Equal(t, tt.wantCreated, res.Created)
			assert.Len(t, runner.Calls, tt.wantCalls)
			assert.True(t, m.IsHealthy(dir))
			if tt.wantRemoved {
				assert.NoFileExists(t, marker)
			}
		})
	}
}

func TestActivateHint(t *testing.T) {
	m, _, _ := newTestManager(t, "linux")
	assert.Equal(t, "source .venv/bin/activate", m.ActivateHint(".venv"))

	m.GOOS = Windows
	assert.Equal(t, `.venv\Scripts\activate`, m.ActivateHint(".venv"))
}
