// Package provision drives a single venv-setup run.
//
// The run is a straight pipeline with no backward edges:
//
//	ParseArgs → EnsureEnvironment → InstallDependencies → ReportDone
//
// ParseArgs happens in the CLI layer; Run covers the remaining stages. The
// first fatal error ends the run and is returned unchanged so the caller
// can exit with its code.
package provision

import (
	"context"

	"github.com/shinji-kodama/venv-setup/internal/model"
	"github.com/shinji-kodama/venv-setup/internal/pip"
	"github.com/shinji-kodama/venv-setup/internal/venv"
)

// Stage names a step of the pipeline.
type Stage string

const (
	StageParseArgs           Stage = "parse-args"
	StageEnsureEnvironment   Stage = "ensure-environment"
	StageInstallDependencies Stage = "install-dependencies"
	StageReportDone          Stage = "report-done"
)

// Provisioner ties the lifecycle manager and the installer together.
type Provisioner struct {
	Env       *venv.Manager
	Installer *pip.Installer

	// OnStage, if set, is called when each stage is entered.
	OnStage func(Stage)
}

// Run provisions the environment described by opts.
//
// The requirements file is checked before the environment is touched, so
// a missing file leaves the directory exactly as it was.
func (p *Provisioner) Run(ctx context.Context, opts model.Options) (*model.Report, error) {
	if err := p.Installer.CheckRequirements(opts.ReqFile); err != nil {
		return nil, err
	}

	p.enter(StageEnsureEnvironment)
	ensured, err := p.Env.Ensure(ctx, opts.VenvDir, opts.Clean)
	if err != nil {
		return nil, err
	}

	p.enter(StageInstallDependencies)
	installed, err := p.Installer.Install(ctx, opts.VenvDir, opts.ReqFile, opts.UpgradePip)
	if err != nil {
		return nil, err
	}

	p.enter(StageReportDone)
	return &model.Report{
		VenvDir:      opts.VenvDir,
		Requirements: opts.ReqFile,
		Removed:      ensured.Removed,
		Created:      ensured.Created,
		UpgradedPip:  installed.UpgradedPip,
		Activate:     p.Env.ActivateHint(opts.VenvDir),
	}, nil
}

func (p *Provisioner) enter(s Stage) {
	if p.OnStage != nil {
		p.OnStage(s)
	}
}
