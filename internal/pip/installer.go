// Package pip installs a requirements listing into a virtual environment
// using the environment's own pip executable.
package pip

import (
	"context"
	"fmt"
	"os"

	"github.com/shinji-kodama/venv-setup/internal/model"
	"github.com/shinji-kodama/venv-setup/internal/proc"
	"github.com/shinji-kodama/venv-setup/internal/venv"
)

// Result reports which pip invocations succeeded.
type Result struct {
	UpgradedPip bool
}

// Installer runs pip inside an environment directory.
type Installer struct {
	// GOOS selects the executable layout inside the environment.
	GOOS string

	runner proc.Runner
	logf   venv.Logf
}

// NewInstaller creates an Installer that uses the same platform layout as
// env. A nil logf discards progress messages.
func NewInstaller(env *venv.Manager, runner proc.Runner, logf venv.Logf) *Installer {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Installer{GOOS: env.GOOS, runner: runner, logf: logf}
}

// CheckRequirements fails with MissingFileError when reqFile does not
// exist.
func (i *Installer) CheckRequirements(reqFile string) error {
	if _, err := os.Stat(reqFile); err != nil {
		if os.IsNotExist(err) {
			return model.NewKindError(model.KindMissingFile, model.ExitMissingFile,
				fmt.Sprintf("%s not found.", reqFile), nil)
		}
		return model.NewKindError(model.KindMissingFile, model.ExitMissingFile,
			fmt.Sprintf("cannot access %s", reqFile), err)
	}
	return nil
}

// Install optionally upgrades pip, then installs reqFile into the
// environment at dir. The two steps are not atomic: if the install fails
// after an upgrade, the upgrade stays in place.
func (i *Installer) Install(ctx context.Context, dir, reqFile string, upgradePip bool) (Result, error) {
	var res Result

	if err := i.CheckRequirements(reqFile); err != nil {
		return res, err
	}

	pipPath := venv.ExecutablePath(i.GOOS, dir, venv.PipExecutable)

	if upgradePip {
		if err := i.run(ctx, pipPath, "install", "--upgrade", "pip"); err != nil {
			return res, err
		}
		res.UpgradedPip = true
		i.logf("# Upgraded pip.")
	}

	if err := i.run(ctx, pipPath, "install", "-r", reqFile); err != nil {
		return res, err
	}
	i.logf("# Installed packages from: %s", reqFile)
	return res, nil
}

// run executes pip and converts a failure into an InstallError carrying
// the child's exit code.
func (i *Installer) run(ctx context.Context, pipPath string, args ...string) error {
	err := i.runner.Run(ctx, proc.Command{Name: pipPath, Args: args})
	if err == nil {
		return nil
	}

	status, ok := proc.ExitCode(err)
	if !ok {
		return model.NewKindError(model.KindInstall, model.ExitGeneralError,
			"pip could not be started", err)
	}
	return model.NewKindError(model.KindInstall, model.ChildExitCode(status),
		fmt.Sprintf("pip install failed with exit code %d", status), err)
}
