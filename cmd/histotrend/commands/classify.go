package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/histotrend/internal/render"
	"github.com/Sumatoshi-tech/histotrend/pkg/histo"
	"github.com/Sumatoshi-tech/histotrend/pkg/safeconv"
	"github.com/Sumatoshi-tech/histotrend/pkg/trend"
)

// ghostArg marks a dump in which the class was absent.
const ghostArg = "-"

// Classify output formats.
const (
	classifyFormatText = "text"
	classifyFormatJSON = "json"
)

// Sentinel errors for classify arguments.
var (
	// ErrInvalidValue indicates an argument that is neither a size nor "-".
	ErrInvalidValue = errors.New("value must be a byte size or -")
	// ErrUnknownClassifyFormat indicates an unsupported --format.
	ErrUnknownClassifyFormat = errors.New("format must be text or json")
)

// ClassifyCommand holds the flags of the classify command.
type ClassifyCommand struct {
	safe                      bool
	detectSingle              bool
	maxGrowthPercentage       float64
	minGrowthPointsPercentage float64
	format                    string
}

// classifyOutput is the JSON form of a classification.
type classifyOutput struct {
	Values      []*int64      `json:"values"`
	Verdict     histo.Verdict `json:"verdict"`
	Description string        `json:"description"`
	Tally       trend.Tally   `json:"tally"`
}

// NewClassifyCommand creates the classify command.
func NewClassifyCommand() *cobra.Command {
	cc := &ClassifyCommand{}

	cmd := &cobra.Command{
		Use:   "classify <size> <size> [size...]",
		Short: "Classify a single series of sizes",
		Long: `Classify the memory trend of one class from its size in consecutive dumps.
Use - for a dump in which the class was absent.

Examples:
  histotrend classify 1000 1100 1200 1300
  histotrend classify 4KiB - 8KiB --format json
  histotrend classify --safe 100 200 400`,
		Args: cobra.MinimumNArgs(2),
		RunE: cc.run,
	}

	cmd.Flags().BoolVar(&cc.safe, "safe", false, "Treat the class as safe to grow")
	cmd.Flags().BoolVar(&cc.detectSingle, "detect-single", true, "Report SINGLE when exactly one size is present")
	cmd.Flags().Float64Var(&cc.maxGrowthPercentage, "max-growth-percentage", trend.DefaultMaxGrowthPercentage,
		"Largest step growth percentage still counted as minor growth")
	cmd.Flags().Float64Var(&cc.minGrowthPointsPercentage, "min-growth-points-percentage",
		trend.DefaultMinGrowthPointsPercentage, "Share of growing steps needed for a growth verdict")
	cmd.Flags().StringVar(&cc.format, "format", classifyFormatText, "Output format: text or json")

	return cmd
}

func (cc *ClassifyCommand) run(cmd *cobra.Command, args []string) error {
	if cc.format != classifyFormatText && cc.format != classifyFormatJSON {
		return fmt.Errorf("%w: %q", ErrUnknownClassifyFormat, cc.format)
	}

	values, err := parseValues(args)
	if err != nil {
		return err
	}

	opts := trend.DefaultClassifyOptions()
	opts.SafeToGrow = cc.safe
	opts.MaxGrowthPercentage = cc.maxGrowthPercentage
	opts.MinGrowthPointsPercentage = cc.minGrowthPointsPercentage

	series := histo.ByteSeries(histo.ClassInfo{Name: "series", OnSafeList: cc.safe}, values)

	verdict, tally := trend.ClassifyDetailed(series, opts)
	if cc.detectSingle && trend.IsSingle(series) {
		verdict = histo.Single
	}

	out := classifyOutput{
		Values:      values,
		Verdict:     verdict,
		Description: verdict.Description(),
		Tally:       tally,
	}

	if cc.format == classifyFormatJSON {
		return writeClassifyJSON(cmd.OutOrStdout(), out)
	}

	return writeClassifyText(cmd.OutOrStdout(), out)
}

// parseValues reads sizes such as "2048" or "2KiB"; "-" yields nil.
func parseValues(args []string) ([]*int64, error) {
	values := make([]*int64, len(args))

	for i, arg := range args {
		if arg == ghostArg {
			continue
		}

		n, err := humanize.ParseBytes(arg)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidValue, arg)
		}

		v, err := safeconv.Uint64ToInt64(n)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidValue, arg, err)
		}

		values[i] = &v
	}

	return values, nil
}

func writeClassifyJSON(w io.Writer, out classifyOutput) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(out)
	if err != nil {
		return fmt.Errorf("encode classification: %w", err)
	}

	return nil
}

func writeClassifyText(w io.Writer, out classifyOutput) error {
	_, err := fmt.Fprintf(w, "%s %s\n  %s\n\n",
		render.VerdictColor(out.Verdict).Sprint(out.Verdict), render.Arrow(out.Verdict), out.Description)
	if err != nil {
		return fmt.Errorf("write classification: %w", err)
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Counter", "Value"})
	tbl.AppendRows([]table.Row{
		{"Comparisons", out.Tally.Comparisons},
		{"Critical growth", out.Tally.GrowthCritical},
		{"Minor growth", out.Tally.GrowthMinor},
		{"Shrink", out.Tally.Shrink},
		{"Stable", out.Tally.Stable},
		{"Ghost", out.Tally.Ghost},
		{"Growth points", strconv.FormatFloat(out.Tally.GrowthPointsPercentage(), 'f', 1, 64) + " %"},
	})
	tbl.Render()

	return nil
}
