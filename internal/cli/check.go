// check.go implements the "venv-setup check" command.
//
// The check command reports whether the environment directory is healthy
// (its pip executable exists) without modifying anything. It exits with
// code 2 when the environment is missing or broken, which makes it usable
// as a guard in scripts and CI before running Python tooling.

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/venv-setup/internal/model"
	"github.com/shinji-kodama/venv-setup/internal/venv"
)

// NewCheckCommand creates the "check" cobra command. It shares the
// persistent --venv-dir and --config flags with the root command.
func NewCheckCommand(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report whether the virtual environment is usable",
		Long: `Report whether the virtual environment's pip executable exists.

Nothing is created or deleted. The command exits with code 2 when the
environment is missing or lacks pip.

Examples:
  venv-setup check
  venv-setup check --venv-dir test_env --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, flags)
		},
	}
}

func runCheck(cmd *cobra.Command, flags *cliFlags) error {
	opts, err := resolveOptions(cmd, flags)
	if err != nil {
		return err
	}

	// No process is spawned, so the manager needs no runner.
	env := venv.NewManager(opts.Python, nil, nil)

	report := &model.HealthReport{
		VenvDir: opts.VenvDir,
		Healthy: env.IsHealthy(opts.VenvDir),
		Pip:     env.PipPath(opts.VenvDir),
	}
	if hidden, known := env.IsHidden(opts.VenvDir); known {
		report.Hidden = &hidden
	}
	VerboseLog("checked %s", report.Pip)

	printHealth(report)

	if !report.Healthy {
		return model.NewCLIError(model.ExitEnvUnhealthy,
			fmt.Sprintf("virtual environment at %s is not usable: %s not found", report.VenvDir, report.Pip))
	}
	return nil
}
