package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/histotrend/pkg/histo"
	"github.com/Sumatoshi-tech/histotrend/pkg/report"
)

//go:embed templates/report.html
var templateFS embed.FS

// MinChartPoints is the number of snapshots needed to draw the charts.
const MinChartPoints = 3

// HTMLExtension is the extension of HTML report files.
const HTMLExtension = ".html"

const (
	assetsHost    = "https://go-echarts.github.io/go-echarts-assets/assets/"
	chartWidth    = "100%"
	chartHeight   = "800px"
	dataZoomEnd   = 100
	axisTimeStamp = "01-02 15:04:05"
	// missingPoint makes echarts leave a gap in the line.
	missingPoint = "-"
	nbsp         = "\u00a0"
)

var (
	reportTemplate     *template.Template
	reportTemplateOnce sync.Once
	errReportTemplate  error
)

func getReportTemplate() (*template.Template, error) {
	reportTemplateOnce.Do(func() {
		reportTemplate, errReportTemplate = template.ParseFS(templateFS, "templates/report.html")
		if errReportTemplate != nil {
			errReportTemplate = fmt.Errorf("parsing templates: %w", errReportTemplate)
		}
	})

	return reportTemplate, errReportTemplate
}

type keyValue struct {
	Key   string
	Value string
}

type summaryRow struct {
	Verdict string
	Count   int
	Arrow   string
	Class   string
}

type pageData struct {
	Title      string
	AssetsHost string
	Message    string
	Settings   []keyValue
	Summary    []summaryRow
	Charts     []template.HTML
}

// Arrow returns the symbol used for v in charts and tables.
func Arrow(v histo.Verdict) string {
	switch v {
	case histo.GrowCritical:
		return "▲"
	case histo.GrowMinor:
		return "⇧"
	case histo.GrowSafe:
		return "↑"
	case histo.GrowHickUps, histo.ShrinkAndGrow:
		return "↕"
	case histo.Shrink:
		return "↓"
	case histo.Stable, histo.Single:
		return "↔"
	case histo.Unknown:
		return "?"
	}

	return "?"
}

func verdictClass(v histo.Verdict) string {
	switch v {
	case histo.GrowCritical:
		return "verdict-critical"
	case histo.GrowMinor:
		return "verdict-minor"
	case histo.GrowSafe:
		return "verdict-safe"
	default:
		return "verdict-other"
	}
}

// HTML writes rep as a page with a summary and four line charts: bytes,
// bytes change, instances and instances change per listed class. Reports
// with fewer than MinChartPoints snapshots get a short notice instead.
func HTML(w io.Writer, rep *report.Report) error {
	tmpl, err := getReportTemplate()
	if err != nil {
		return err
	}

	data := pageData{
		Title:      "Heap histogram dump report - " + rep.Meta.Identifier,
		AssetsHost: assetsHost,
	}

	if len(rep.Timestamps) < MinChartPoints {
		data.Message = fmt.Sprintf("Not enough points (%d < %d) to create html graph for %s.",
			len(rep.Timestamps), MinChartPoints, rep.Meta.Identifier)
	} else {
		data.Settings = settingsRows(rep)
		data.Summary = summaryRows(rep)

		data.Charts, err = reportCharts(rep)
		if err != nil {
			return err
		}
	}

	var buf bytes.Buffer

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return fmt.Errorf("executing template: %w", err)
	}

	_, err = w.Write(buf.Bytes())
	if err != nil {
		return fmt.Errorf("writing page: %w", err)
	}

	return nil
}

// HasCharts reports whether HTML would draw charts for rep.
func HasCharts(rep *report.Report) bool {
	return len(rep.Timestamps) >= MinChartPoints
}

func settingsRows(rep *report.Report) []keyValue {
	limits := rep.Limits

	return []keyValue{
		{Key: "Test run id", Value: rep.Meta.Identifier},
		{Key: "Report date", Value: rep.Meta.ReportTime.Format(time.RFC3339)},
		{Key: "Time zone", Value: rep.Meta.Location().String()},
		{Key: "Overall analysis result", Value: rep.Verdict.String()},
		{Key: "Report settings", Value: limits.Report.String()},
		{Key: "Report class limit", Value: strconv.Itoa(limits.ClassLimit)},
		{Key: "Report byte limit", Value: humanize.IBytes(nonNegative(limits.ByteFloor))},
		{Key: "Maximum allowed growth percentage", Value: formatPercentage(limits.MaxGrowthPercentage)},
		{Key: "Minimum growth points percentage", Value: formatPercentage(limits.MinGrowthPointsPercentage)},
		{Key: "Safe list", Value: "[" + strings.Join(limits.SafeList, ", ") + "]"},
		{Key: "Watch list", Value: "[" + strings.Join(limits.WatchList, ", ") + "]"},
	}
}

func summaryRows(rep *report.Report) []summaryRow {
	verdicts := histo.Verdicts()
	rows := make([]summaryRow, len(verdicts))

	for i, v := range verdicts {
		rows[i] = summaryRow{
			Verdict: v.String(),
			Count:   rep.Histogram[v],
			Arrow:   Arrow(v),
			Class:   verdictClass(v),
		}
	}

	return rows
}

// chartSpec selects one series of a class for a chart.
type chartSpec struct {
	title  string
	yAxis  string
	yType  string
	values func(report.ClassDetails) []*int64
}

var chartSpecs = []chartSpec{
	{title: "Bytes", yAxis: "bytes", yType: "log", values: func(d report.ClassDetails) []*int64 { return d.Bytes }},
	{title: "Bytes change", yAxis: "bytes", yType: "value", values: func(d report.ClassDetails) []*int64 { return d.BytesDiff }},
	{title: "Instances", yAxis: "instances", yType: "log", values: func(d report.ClassDetails) []*int64 { return d.Instances }},
	{title: "Instances change", yAxis: "instances", yType: "value", values: func(d report.ClassDetails) []*int64 {
		return d.InstancesDiff
	}},
}

func reportCharts(rep *report.Report) ([]template.HTML, error) {
	loc := rep.Meta.Location()

	labels := make([]string, len(rep.Timestamps))
	for i, ts := range rep.Timestamps {
		labels[i] = time.UnixMilli(ts).In(loc).Format(axisTimeStamp)
	}

	out := make([]template.HTML, 0, len(chartSpecs))

	for _, spec := range chartSpecs {
		line := buildLineChart(rep.Meta.Identifier, spec, labels, rep.Details)

		content, err := renderChart(line)
		if err != nil {
			return nil, err
		}

		out = append(out, template.HTML(content)) //nolint:gosec // produced by go-echarts from escaped options
	}

	return out, nil
}

func buildLineChart(identifier string, spec chartSpec, labels []string, details []report.ClassDetails) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: spec.title + " - " + identifier}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(
			opts.DataZoom{Type: "slider", Start: 0, End: dataZoomEnd},
			opts.DataZoom{Type: "inside"},
		),
		charts.WithXAxisOpts(opts.XAxis{Name: "time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: spec.yAxis, Type: spec.yType}),
		charts.WithLegendOpts(opts.Legend{
			Show:   opts.Bool(true),
			Type:   "scroll",
			Orient: "vertical",
			Right:  "0",
			Top:    "10%",
		}),
		charts.WithGridOpts(opts.Grid{Left: "5%", Right: "30%", ContainLabel: opts.Bool(true)}),
	)

	line.SetXAxis(labels)

	for _, d := range details {
		line.AddSeries(Arrow(d.Verdict)+nbsp+d.Class.String(), lineData(spec.values(d), spec.yType == "log"))
	}

	return line
}

// lineData converts a series to chart points. Log axes cannot show zero or
// negative values, so those become gaps too.
func lineData(values []*int64, logAxis bool) []opts.LineData {
	points := make([]opts.LineData, len(values))

	for i, v := range values {
		if v == nil || (logAxis && *v <= 0) {
			points[i] = opts.LineData{Value: missingPoint}

			continue
		}

		points[i] = opts.LineData{Value: *v}
	}

	return points
}

func renderChart(line *charts.Line) (string, error) {
	var buf bytes.Buffer

	err := line.Render(&buf)
	if err != nil {
		return "", fmt.Errorf("rendering chart: %w", err)
	}

	return extractChartContent(buf.String()), nil
}

// extractChartContent keeps the chart div and script of a full echarts page.
func extractChartContent(page string) string {
	start := strings.Index(page, `<div class="container">`)
	if start == -1 {
		return page
	}

	end := strings.Index(page[start:], `</body>`)
	if end == -1 {
		return page[start:]
	}

	content := page[start : start+end]

	return strings.ReplaceAll(content, `class="container"`, `class="echart-box"`)
}

// HTMLFileName returns the HTML report file name for identifier id.
func HTMLFileName(id string) string {
	return ReportFileName(id, HTMLExtension)
}

// SaveHTML writes the HTML report for rep to dir and returns the path.
func SaveHTML(dir string, rep *report.Report) (string, error) {
	path := filepath.Join(dir, HTMLFileName(rep.Meta.Identifier))

	err := writeFileAtomic(path, func(w io.Writer) error {
		return HTML(w, rep)
	})
	if err != nil {
		return "", err
	}

	return path, nil
}
