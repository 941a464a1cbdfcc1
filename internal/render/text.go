// Package render writes leak reports as terminal text, JSON or YAML files,
// HTML chart pages and Prometheus textfiles.
package render

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/histotrend/pkg/histo"
	"github.com/Sumatoshi-tech/histotrend/pkg/report"
	"github.com/Sumatoshi-tech/histotrend/pkg/safeconv"
)

// missingValue is shown for snapshots without a value.
const missingValue = "_"

const headerTimeLayout = "2006-01-02T15:04:05"

// Text writes rep as a human readable report.
func Text(w io.Writer, rep *report.Report) error {
	var sb strings.Builder

	header := fmt.Sprintf("Histogram report - %s - %s", rep.Meta.Identifier, rep.Meta.ReportTime.Format(headerTimeLayout))
	dashes := strings.Repeat("-", len(header))

	fmt.Fprintf(&sb, "%s\n%s\n%s\n\n", dashes, header, dashes)

	loc := rep.Meta.Location()

	for i, file := range rep.Meta.HistogramFiles {
		if i < len(rep.Timestamps) {
			fmt.Fprintf(&sb, "File: '%s' with date %s\n", file, formatMillis(rep.Timestamps[i], loc))
		} else {
			fmt.Fprintf(&sb, "File: '%s'\n", file)
		}
	}

	fmt.Fprintf(&sb, "\nOverall result: %s\n\n", VerdictColor(rep.Verdict).Sprint(rep.Verdict))
	sb.WriteString(summaryTable(rep))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Below only classes are listed that have a remaining size above %s in the last histogram",
		humanize.IBytes(nonNegative(rep.Limits.ByteFloor)))

	if len(rep.Limits.WatchList) > 0 {
		sb.WriteString(", or are on the watch list")
	}

	sb.WriteString(".\n")

	for _, v := range rep.Limits.Report.Slice() {
		details := rep.DetailsFor(v)

		fmt.Fprintf(&sb, "\n%s %s (%d)\n", VerdictColor(v).Sprint(v), v.Description(), len(details))

		if len(details) > 0 {
			sb.WriteString(detailsTable(details))
			sb.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, sb.String())
	if err != nil {
		return fmt.Errorf("write text report: %w", err)
	}

	return nil
}

// VerdictColor returns the terminal color used for v.
func VerdictColor(v histo.Verdict) *color.Color {
	switch v {
	case histo.GrowCritical:
		return color.New(color.FgRed, color.Bold)
	case histo.GrowMinor:
		return color.New(color.FgYellow)
	case histo.GrowSafe, histo.Shrink:
		return color.New(color.FgGreen)
	case histo.GrowHickUps, histo.ShrinkAndGrow, histo.Single:
		return color.New(color.FgCyan)
	case histo.Stable, histo.Unknown:
		return color.New(color.Reset)
	}

	return color.New(color.Reset)
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false

	return tbl
}

func summaryTable(rep *report.Report) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Verdict", "Count", "Meaning"})

	total := 0

	for _, v := range histo.Verdicts() {
		count := rep.Histogram[v]
		total += count

		tbl.AppendRow(table.Row{v.String(), count, v.Description()})
	}

	tbl.AppendFooter(table.Row{"Total", total, ""})

	return tbl.Render()
}

func detailsTable(details []report.ClassDetails) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"#", "Class", "Bytes", "Bytes change", "Instances", "Instances change"})

	for i, d := range details {
		tbl.AppendRow(table.Row{
			i + 1,
			d.Class.String(),
			formatBytes(last(d.Bytes)),
			formatSignedBytes(change(d.Bytes)),
			formatCount(last(d.Instances)),
			formatSignedCount(change(d.Instances)),
		})
	}

	return tbl.Render()
}

// last returns the final value, or nil when the class is gone.
func last(values []*int64) *int64 {
	if len(values) == 0 {
		return nil
	}

	return values[len(values)-1]
}

// change returns the last known value minus the first known value.
func change(values []*int64) *int64 {
	var first, final *int64

	for _, v := range values {
		if v == nil {
			continue
		}

		if first == nil {
			first = v
		}

		final = v
	}

	if first == nil {
		return nil
	}

	d := *final - *first

	return &d
}

func formatMillis(ms int64, loc *time.Location) string {
	return time.UnixMilli(ms).In(loc).Format(time.RFC3339Nano)
}

func formatBytes(v *int64) string {
	if v == nil {
		return missingValue
	}

	return humanize.IBytes(nonNegative(*v))
}

func formatSignedBytes(v *int64) string {
	if v == nil {
		return missingValue
	}

	if *v < 0 {
		return "-" + humanize.IBytes(absUint(*v))
	}

	return "+" + humanize.IBytes(absUint(*v))
}

func formatCount(v *int64) string {
	if v == nil {
		return missingValue
	}

	return humanize.Comma(*v)
}

func formatSignedCount(v *int64) string {
	if v == nil {
		return missingValue
	}

	if *v < 0 {
		return humanize.Comma(*v)
	}

	return "+" + humanize.Comma(*v)
}

func nonNegative(v int64) uint64 {
	n, err := safeconv.Int64ToUint64(v)
	if err != nil {
		return 0
	}

	return n
}

func absUint(v int64) uint64 {
	if v == math.MinInt64 {
		return math.MaxInt64 + 1
	}

	if v < 0 {
		v = -v
	}

	return nonNegative(v)
}

// formatPercentage renders a threshold such as 5 or 12.5 without trailing zeros.
func formatPercentage(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64) + " %"
}
