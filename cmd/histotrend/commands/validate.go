package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/histotrend/internal/render"
)

const stdinArg = "-"

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "validate <report.json|->",
		Short: "Validate a JSON report against the report schema",
		Long: `Validate a JSON report written by "histotrend analyze" against the
report schema. Exits with code 3 when the report does not match.

Examples:
  histotrend validate heapHistogramDumpReport-run1.json
  histotrend validate - < heapHistogramDumpReport-run1.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true //nolint:reassign // intentional override of library global
			}

			return runValidate(cmd.InOrStdin(), cmd.OutOrStdout(), args[0], flagBool(cmd, "quiet"))
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")

	return cmd
}

func runValidate(stdin io.Reader, out io.Writer, inputPath string, quiet bool) error {
	data, label, err := readInput(stdin, inputPath)
	if err != nil {
		return err
	}

	err = render.ValidateJSON(data)
	if err == nil {
		if !quiet {
			color.New(color.FgGreen).Fprintf(out, "Report is valid (%s)\n", label)
		}

		return nil
	}

	var schemaErr *render.SchemaError
	if !errors.As(err, &schemaErr) {
		return &ExitError{Code: ExitCodeInvalid, Err: fmt.Errorf("%s: %w", label, err)}
	}

	color.New(color.FgRed).Fprintf(out, "Report validation failed (%s)\n", label)
	fmt.Fprintf(out, "\nErrors:\n")

	for _, violation := range schemaErr.Violations {
		color.New(color.FgRed).Fprintf(out, "  - %s\n", violation)
	}

	return &ExitError{Code: ExitCodeInvalid, Err: fmt.Errorf("%s: %w", label, render.ErrInvalidReport)}
}

func readInput(stdin io.Reader, inputPath string) (data []byte, label string, err error) {
	if inputPath == stdinArg {
		data, err = io.ReadAll(stdin)
		if err != nil {
			return nil, "", fmt.Errorf("read stdin: %w", err)
		}

		return data, "stdin", nil
	}

	data, err = os.ReadFile(inputPath)
	if err != nil {
		return nil, "", fmt.Errorf("read report: %w", err)
	}

	return data, inputPath, nil
}
