package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/Sumatoshi-tech/histotrend/internal/analysis"
	"github.com/Sumatoshi-tech/histotrend/internal/config"
	"github.com/Sumatoshi-tech/histotrend/internal/observability"
	"github.com/Sumatoshi-tech/histotrend/internal/render"
	"github.com/Sumatoshi-tech/histotrend/pkg/histo"
	"github.com/Sumatoshi-tech/histotrend/pkg/report"
)

// ErrFailOn is wrapped by the error returned when the overall verdict is in --fail-on.
var ErrFailOn = errors.New("overall verdict matches --fail-on")

// AnalyzeCommand holds the flags of the analyze command.
type AnalyzeCommand struct {
	configPath string

	dir        string
	extension  string
	identifier string
	reportDir  string
	classLimit int
	byteLimit  string
	settings   string
	formats    []string

	maxGrowthPercentage       float64
	minGrowthPointsPercentage float64
	safeList                  []string
	watchList                 []string
	safeListFile              string
	watchListFile             string
	timeZone                  string
	workers                   int
	noSingles                 bool

	metricsFile string
	failOn      string
	noColor     bool

	initObservability observabilityInit
	now               func() time.Time
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	return newAnalyzeCommandWithDeps(observability.Init, time.Now)
}

func newAnalyzeCommandWithDeps(initFn observabilityInit, now func() time.Time) *cobra.Command {
	ac := &AnalyzeCommand{
		initObservability: initFn,
		now:               now,
	}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a directory of histogram dumps",
		Long: `Read every histogram dump in a directory, follow each class through the
dumps in time order and classify its memory trend.

Settings come from flags, HISTOTREND_* environment variables and an optional
.histotrend.yaml file, in that order of precedence.

Examples:
  histotrend analyze -d ./dumps -i load-test-1
  histotrend analyze -d ./dumps -s grow_critical,grow_minor,grow_safe --format text,json,yaml
  histotrend analyze -d ./dumps --fail-on grow_critical`,
		Args: cobra.NoArgs,
		RunE: ac.run,
	}

	flags := cmd.Flags()
	flags.StringVar(&ac.configPath, "config", "", "Config file (default: .histotrend.yaml in CWD or $HOME)")
	flags.StringVarP(&ac.dir, "dir", "d", config.DefaultDir, "Directory holding the histogram dumps")
	flags.StringVarP(&ac.extension, "ext", "e", config.DefaultExtension, "Extension of the histogram dump files")
	flags.StringVarP(&ac.identifier, "id", "i", config.DefaultIdentifier, "Report identifier; #ts# is replaced by the report time")
	flags.StringVarP(&ac.reportDir, "report-dir", "r", config.DefaultReportDir, "Directory the report files are written to")
	flags.IntVarP(&ac.classLimit, "class-limit", "c", config.DefaultClassLimit,
		"Maximum number of listed classes per report, watched classes excluded")
	flags.StringVarP(&ac.byteLimit, "bytes-limit", "b", config.DefaultByteLimit,
		"Only list classes above this size in the last dump (e.g. 2048, 2KiB, 1MB)")
	flags.StringVarP(&ac.settings, "settings", "s", config.DefaultSettings, "Comma separated verdicts to list")
	flags.StringSliceVar(&ac.formats, "format", config.DefaultFormats, "Report formats: text, json, yaml, html")

	flags.Float64Var(&ac.maxGrowthPercentage, "max-growth-percentage", config.DefaultMaxGrowthPercentage,
		"Largest step growth percentage still counted as minor growth")
	flags.Float64Var(&ac.minGrowthPointsPercentage, "min-growth-points-percentage", config.DefaultMinGrowthPointsPercentage,
		"Share of growing steps needed for a growth verdict")
	flags.StringSliceVar(&ac.safeList, "safe-list", nil, "Classes known to grow safely; * is a wildcard")
	flags.StringSliceVar(&ac.watchList, "watch-list", nil, "Classes that are always listed; * is a wildcard")
	flags.StringVar(&ac.safeListFile, "safe-list-file", "", "File with one safe class pattern per line")
	flags.StringVar(&ac.watchListFile, "watch-list-file", "", "File with one watched class pattern per line")
	flags.StringVar(&ac.timeZone, "time-zone", "", "Zone of the dump times: IANA name, Local, UTC or +02:00 (default: Local)")
	flags.IntVar(&ac.workers, "workers", 0, "Number of parallel workers (0 = use CPU count)")
	flags.BoolVar(&ac.noSingles, "no-singles", false, "Classify classes present in one dump only like any other class")

	flags.StringVar(&ac.metricsFile, "metrics-file", "", "Write report and run metrics to this Prometheus textfile")
	flags.StringVar(&ac.failOn, "fail-on", "", "Exit with code 2 when the overall verdict is one of these, comma separated")
	flags.BoolVar(&ac.noColor, "no-color", false, "Disable colored text output")

	return cmd
}

func (ac *AnalyzeCommand) run(cmd *cobra.Command, _ []string) error {
	if ac.noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	failOn, unknownFailOn := histo.ParseVerdictSet(ac.failOn)
	if len(unknownFailOn) > 0 {
		return fmt.Errorf("--fail-on: %w: %s", histo.ErrUnknownVerdict, strings.Join(unknownFailOn, ", "))
	}

	cfg, err := config.LoadConfig(ac.configPath)
	if err != nil {
		return err
	}

	ac.applyFlags(cmd, cfg)

	err = cfg.Validate()
	if err != nil {
		return wrapConfigErr(err)
	}

	obsCfg, err := observabilityConfig(cmd, cfg, observability.ModeCLI)
	if err != nil {
		return err
	}

	var (
		promExport *observability.PrometheusExport
		readers    []sdkmetric.Reader
	)

	if cfg.Telemetry.MetricsFile != "" {
		promExport, err = observability.NewPrometheusExport()
		if err != nil {
			return err
		}

		readers = append(readers, promExport.Reader)
	}

	providers, err := ac.initObservability(obsCfg, readers...)
	if err != nil {
		return err
	}

	defer shutdown(providers)

	logger := loggerOf(providers)

	metrics, err := observability.NewAnalysisMetrics(providers.Meter)
	if err != nil {
		return err
	}

	req, unknown, err := analysis.NewRequest(cfg, ac.now())
	if err != nil {
		return wrapConfigErr(err)
	}

	if len(unknown) > 0 {
		logger.Warn("ignoring unknown report settings", "settings", unknown)
	}

	runner := analysis.Runner{Logger: logger, Tracer: providers.Tracer, Metrics: metrics}

	rep, err := runner.Run(cmd.Context(), req)
	if err != nil {
		return err
	}

	err = writeReports(cmd.OutOrStdout(), logger, cfg, rep, flagBool(cmd, "quiet"))
	if err != nil {
		return err
	}

	if cfg.Telemetry.MetricsFile != "" {
		err = writeMetricsFile(cfg.Telemetry.MetricsFile, rep, promExport)
		if err != nil {
			return err
		}

		logger.Info("metrics written", "path", cfg.Telemetry.MetricsFile)
	}

	if failOn.Has(rep.Verdict) {
		return &ExitError{Code: ExitCodeFailOn, Err: fmt.Errorf("%w: %s", ErrFailOn, rep.Verdict)}
	}

	return nil
}

// applyFlags overrides configuration values with explicitly set flags.
func (ac *AnalyzeCommand) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("dir") {
		cfg.Input.Dir = ac.dir
	}

	if changed("ext") {
		cfg.Input.Extension = ac.extension
	}

	if changed("id") {
		cfg.Report.Identifier = ac.identifier
	}

	if changed("report-dir") {
		cfg.Report.Dir = ac.reportDir
	}

	if changed("class-limit") {
		cfg.Report.ClassLimit = ac.classLimit
	}

	if changed("bytes-limit") {
		cfg.Report.ByteLimit = ac.byteLimit
	}

	if changed("settings") {
		cfg.Report.Settings = ac.settings
	}

	if changed("format") {
		cfg.Report.Formats = ac.formats
	}

	ac.applyAnalysisFlags(changed, cfg)

	if changed("metrics-file") {
		cfg.Telemetry.MetricsFile = ac.metricsFile
	}
}

func (ac *AnalyzeCommand) applyAnalysisFlags(changed func(string) bool, cfg *config.Config) {
	if changed("max-growth-percentage") {
		cfg.Analysis.MaxGrowthPercentage = ac.maxGrowthPercentage
	}

	if changed("min-growth-points-percentage") {
		cfg.Analysis.MinGrowthPointsPercentage = ac.minGrowthPointsPercentage
	}

	if changed("safe-list") {
		cfg.Analysis.SafeList = ac.safeList
	}

	if changed("watch-list") {
		cfg.Analysis.WatchList = ac.watchList
	}

	if changed("safe-list-file") {
		cfg.Analysis.SafeListFile = ac.safeListFile
	}

	if changed("watch-list-file") {
		cfg.Analysis.WatchListFile = ac.watchListFile
	}

	if changed("time-zone") {
		cfg.Analysis.TimeZone = ac.timeZone
	}

	if changed("workers") {
		cfg.Analysis.Workers = ac.workers
	}

	if changed("no-singles") {
		cfg.Analysis.DetectSingles = !ac.noSingles
	}
}

func writeReports(out io.Writer, logger *slog.Logger, cfg *config.Config, rep *report.Report, quiet bool) error {
	formats := normalizeFormats(cfg.Report.Formats)

	if slices.Contains(formats, config.FormatText) && !quiet {
		err := render.Text(out, rep)
		if err != nil {
			return err
		}
	}

	if len(formats) > 0 && cfg.Report.Dir != "" {
		err := os.MkdirAll(cfg.Report.Dir, 0o750)
		if err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}

	for _, format := range formats {
		var (
			path string
			err  error
		)

		switch format {
		case config.FormatJSON:
			path, err = render.SaveReport(cfg.Report.Dir, rep, render.NewJSONCodec())
		case config.FormatYAML:
			path, err = render.SaveReport(cfg.Report.Dir, rep, render.NewYAMLCodec())
		case config.FormatHTML:
			if !render.HasCharts(rep) {
				logger.Warn("not enough points to create html graph",
					"points", len(rep.Timestamps), "min", render.MinChartPoints, "id", rep.Meta.Identifier)
			}

			path, err = render.SaveHTML(cfg.Report.Dir, rep)
		default:
			continue
		}

		if err != nil {
			return err
		}

		if !quiet {
			fmt.Fprintf(out, "Report written to %s\n", path)
		}
	}

	return nil
}

func normalizeFormats(formats []string) []string {
	out := make([]string, 0, len(formats))

	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}

	return out
}

func writeMetricsFile(path string, rep *report.Report, export *observability.PrometheusExport) error {
	var extra []prometheus.Gatherer
	if export != nil {
		extra = append(extra, export.Registry)
	}

	return render.WritePrometheus(path, rep, extra...)
}
