// Package cli implements the cobra-based CLI for venv-setup.
//
// The root command provisions the environment; the check subcommand only
// inspects it. This file defines the root command, the global flags, and
// the translation of errors into process exit codes.
package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/venv-setup/internal/config"
	"github.com/shinji-kodama/venv-setup/internal/model"
	"github.com/shinji-kodama/venv-setup/internal/pip"
	"github.com/shinji-kodama/venv-setup/internal/proc"
	"github.com/shinji-kodama/venv-setup/internal/provision"
	"github.com/shinji-kodama/venv-setup/internal/venv"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	// Progress lines and child output move to stderr so stdout carries
	// only the JSON document.
	jsonOutput bool

	// verbose enables detailed logging output for debugging.
	verbose bool
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// cliFlags holds the raw values of the option flags. Only flags the user
// actually set override the config file; see resolveOptions.
type cliFlags struct {
	configPath string
	values     model.Options
}

// NewRootCommand creates and configures the root cobra command.
// This is the entry point for the entire CLI application.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&cliFlags{})
}

func newRootCommand(flags *cliFlags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "venv-setup",
		Short: "Create a Python virtual environment and install requirements into it",
		Long: `venv-setup makes sure a Python virtual environment exists and installs a
requirements file into it with the environment's own pip.

An existing environment is reused when its pip executable is present. It is
deleted and recreated when --clean is given or when pip is missing.

Defaults can be set per project in .venv-setup.yaml, .venv-setup.json, or a
[tool.venv-setup] table in pyproject.toml. Flags always win.

Examples:
  venv-setup
  venv-setup --venv-dir test_env --req-file reqs.txt
  venv-setup --clean --upgrade-pip`,

		Args: cobra.NoArgs,

		// SilenceUsage prevents cobra from printing usage on every error.
		// We handle error output ourselves for cleaner UX.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runProvision(cmd, flags)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	pf.StringVar(&flags.configPath, "config", "", "Config file (default: first of "+configSearchList()+" in the current directory)")
	pf.StringVar(&flags.values.VenvDir, "venv-dir", config.DefaultVenvDir, "Virtual environment directory")

	f := rootCmd.Flags()
	f.StringVar(&flags.values.ReqFile, "req-file", config.DefaultReqFile, "Requirements file")
	f.BoolVar(&flags.values.Clean, "clean", false, "Delete and recreate the virtual environment")
	f.BoolVar(&flags.values.UpgradePip, "upgrade-pip", false, "Upgrade pip in the virtual environment")
	f.StringVar(&flags.values.Python, "python", "", "Python interpreter used to create the environment (default: $"+config.EnvPython+", else python3; python on Windows)")

	rootCmd.AddCommand(NewCheckCommand(flags))

	return rootCmd
}

// Execute runs the root command and returns the process exit code.
// This is the main entry point called from main.go.
//
// CLIError types carry their own exit codes (for child process failures,
// the child's code); other errors map to exit code 1.
func Execute(rootCmd *cobra.Command) int {
	err := rootCmd.Execute()
	if err == nil {
		return int(model.ExitSuccess)
	}

	writeError(os.Stderr, err, jsonOutput)

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		return int(cliErr.Code)
	}
	return int(model.ExitGeneralError)
}

// runProvision resolves options and runs the provisioning pipeline.
func runProvision(cmd *cobra.Command, flags *cliFlags) error {
	VerboseLog("stage: %s", provision.StageParseArgs)
	opts, err := resolveOptions(cmd, flags)
	if err != nil {
		return err
	}
	VerboseLog("options: venv-dir=%s req-file=%s python=%s clean=%t upgrade-pip=%t",
		opts.VenvDir, opts.ReqFile, opts.Python, opts.Clean, opts.UpgradePip)

	runner := proc.NewExecRunner()
	if jsonOutput {
		runner.Stdout = os.Stderr
	}

	env := venv.NewManager(opts.Python, runner, progressLog)
	p := &provision.Provisioner{
		Env:       env,
		Installer: pip.NewInstaller(env, runner, progressLog),
		OnStage: func(s provision.Stage) {
			VerboseLog("stage: %s", s)
		},
	}

	report, err := p.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	printReport(report)
	return nil
}

// resolveOptions layers defaults, the config file, and explicitly set
// flags, in that order.
func resolveOptions(cmd *cobra.Command, flags *cliFlags) (model.Options, error) {
	opts := config.Defaults(runtime.GOOS, os.Getenv)

	var (
		file *config.File
		err  error
	)
	if flags.configPath != "" {
		file, err = config.Load(flags.configPath)
	} else {
		file, err = config.Discover(".")
	}
	if err != nil {
		return model.Options{}, err
	}
	if file != nil {
		VerboseLog("using config file %s", file.Path)
	}
	file.Apply(&opts)

	// Flags override the file only when given on the command line, so a
	// flag default never masks a configured value.
	changed := cmd.Flags().Changed
	if changed("venv-dir") {
		opts.VenvDir = flags.values.VenvDir
	}
	if changed("req-file") {
		opts.ReqFile = flags.values.ReqFile
	}
	if changed("clean") {
		opts.Clean = flags.values.Clean
	}
	if changed("upgrade-pip") {
		opts.UpgradePip = flags.values.UpgradePip
	}
	if changed("python") {
		opts.Python = flags.values.Python
	}

	if err := opts.Validate(); err != nil {
		return model.Options{}, model.NewKindError(model.KindConfig, model.ExitGeneralError, "invalid options", err)
	}
	return opts, nil
}

// progressLog writes a "# "-prefixed progress line. In JSON mode it goes
// to stderr, because stdout is reserved for the result document.
func progressLog(format string, args ...any) {
	w := os.Stdout
	if jsonOutput {
		w = os.Stderr
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// VerboseLog prints a message to stderr only when verbose mode is enabled.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}

func configSearchList() string {
	return strings.Join(config.SearchOrder, ", ")
}
