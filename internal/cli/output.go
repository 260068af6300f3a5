package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shinji-kodama/venv-setup/internal/model"
)

// printReport outputs the provisioning result in text or JSON format.
func printReport(report *model.Report) {
	if IsJSONOutput() {
		writeJSON(os.Stdout, report)
		return
	}
	writeReportText(os.Stdout, report)
}

// writeReportText prints the closing message with the activation command.
func writeReportText(w io.Writer, report *model.Report) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# Done. To activate the virtual environment:")
	fmt.Fprintf(w, "   %s\n", report.Activate)
}

func printHealth(report *model.HealthReport) {
	if IsJSONOutput() {
		writeJSON(os.Stdout, report)
		return
	}
	writeHealthText(os.Stdout, report)
}

func writeHealthText(w io.Writer, report *model.HealthReport) {
	if report.Healthy {
		fmt.Fprintf(w, "# Virtual environment at %s is healthy (%s)\n", report.VenvDir, report.Pip)
	} else {
		fmt.Fprintf(w, "# Virtual environment at %s is not usable: %s not found\n", report.VenvDir, report.Pip)
	}

	if report.Hidden != nil {
		state := "visible"
		if *report.Hidden {
			state = "hidden"
		}
		fmt.Fprintf(w, "# Directory is %s\n", state)
	}
}

// writeJSON writes v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(data))
}

// writeError outputs an error as a single "# Error:" line, or as a JSON
// document when asJSON is set.
func writeError(w io.Writer, err error, asJSON bool) {
	var (
		kind    model.ErrorKind
		message = err.Error()
		detail  string
	)
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		kind = cliErr.Kind
		message = cliErr.Message
		if cliErr.Err != nil {
			detail = cliErr.Err.Error()
		}
	}

	if asJSON {
		type errorJSON struct {
			Kind    string `json:"kind,omitempty"`
			Message string `json:"message"`
			Detail  string `json:"detail,omitempty"`
		}
		writeJSON(w, map[string]errorJSON{
			"error": {Kind: kind.String(), Message: message, Detail: detail},
		})
		return
	}

	if detail != "" {
		fmt.Fprintf(w, "# Error: %s: %s\n", message, detail)
		return
	}
	fmt.Fprintf(w, "# Error: %s\n", message)
}
