// Package analysis runs the complete pipeline from a directory of histogram
// dumps to a leak report.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/histotrend/internal/config"
	"github.com/Sumatoshi-tech/histotrend/internal/histofile"
	"github.com/Sumatoshi-tech/histotrend/internal/observability"
	"github.com/Sumatoshi-tech/histotrend/pkg/histo"
	"github.com/Sumatoshi-tech/histotrend/pkg/report"
	"github.com/Sumatoshi-tech/histotrend/pkg/trend"
)

const spanPrefix = "histotrend."

// ErrNoDumps is returned when the input directory holds no histogram dumps.
var ErrNoDumps = errors.New("no histogram dumps found")

// Request describes one analysis.
type Request struct {
	Dir       string
	Extension string
	// Identifier names the report; it is used in report file names.
	Identifier    string
	Safe          *histo.PatternSet
	Watch         *histo.PatternSet
	SafeListFile  string
	WatchListFile string
	Aggregate     trend.AggregateConfig
	Limits        report.Limits
	// Now is the report time. Zero means time.Now.
	Now time.Time
}

// NewRequest builds a request from cfg. Settings names that are not verdicts
// are returned in unknown so callers can warn about them.
func NewRequest(cfg *config.Config, now time.Time) (req Request, unknown []string, err error) {
	safe, watch, err := cfg.PatternSets()
	if err != nil {
		return Request{}, nil, err
	}

	verdicts, unknown := cfg.ReportVerdicts()

	limits, err := cfg.Limits(safe, watch, verdicts)
	if err != nil {
		return Request{}, nil, err
	}

	aggCfg, err := cfg.AggregateConfig()
	if err != nil {
		return Request{}, nil, err
	}

	return Request{
		Dir:           cfg.Input.Dir,
		Extension:     cfg.Input.Extension,
		Identifier:    cfg.Identifier(now),
		Safe:          safe,
		Watch:         watch,
		SafeListFile:  cfg.Analysis.SafeListFile,
		WatchListFile: cfg.Analysis.WatchListFile,
		Aggregate:     aggCfg,
		Limits:        limits,
		Now:           now,
	}, unknown, nil
}

// Runner executes requests. Zero-value fields are replaced by no-op defaults.
type Runner struct {
	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.AnalysisMetrics
}

// Run reads the dumps of req.Dir, classifies every class and builds the report.
func (r *Runner) Run(ctx context.Context, req Request) (*report.Report, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := r.Tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer("")
	}

	start := time.Now()

	ctx, span := tracer.Start(ctx, spanPrefix+"analyze",
		trace.WithAttributes(
			attribute.String("histotrend.dir", req.Dir),
			attribute.String("histotrend.identifier", req.Identifier),
		),
	)
	defer span.End()

	files, err := histofile.ListFiles(req.Dir, req.Extension)
	if err != nil {
		return nil, fmt.Errorf("list dumps: %w", err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s with extension %q", ErrNoDumps, req.Dir, req.Extension)
	}

	logger.InfoContext(ctx, "reading histogram dumps",
		"dir", req.Dir,
		"files", len(files),
		"safe_patterns", req.Safe.Len(),
		"watch_patterns", req.Watch.Len(),
	)

	reader := histofile.NewReader(req.Safe, req.Watch, logger)

	snapshots, err := reader.ReadSnapshots(ctx, files)
	if err != nil {
		return nil, err
	}

	table, err := trend.Aggregate(ctx, snapshots, req.Aggregate)
	if err != nil {
		return nil, err
	}

	rep := report.Build(table, req.Limits)
	rep.Meta = report.Meta{
		Identifier:     req.Identifier,
		ReportTime:     reportTime(req.Now),
		HistogramFiles: sourceNames(snapshots),
		SafeListFile:   req.SafeListFile,
		WatchListFile:  req.WatchListFile,
		TimeZone:       zoneName(req.Aggregate.Location),
	}

	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.Int("histotrend.snapshots", len(snapshots)),
		attribute.Int("histotrend.classes", table.Len()),
		attribute.String("histotrend.verdict", rep.Verdict.String()),
	)

	r.Metrics.RecordRun(ctx, observability.AnalysisStats{
		Snapshots: len(snapshots),
		Classes:   table.Len(),
		Verdicts:  rep.Histogram,
		Duration:  elapsed,
	})

	logger.InfoContext(ctx, "analysis complete",
		"snapshots", len(snapshots),
		"classes", table.Len(),
		"listed", len(rep.Details),
		"verdict", rep.Verdict.String(),
		"duration", elapsed,
	)

	return rep, nil
}

func reportTime(now time.Time) time.Time {
	if now.IsZero() {
		return time.Now()
	}

	return now
}

// zoneName names loc so report.Meta.Location can resolve it again.
func zoneName(loc *time.Location) string {
	if loc == nil {
		return time.UTC.String()
	}

	return loc.String()
}

// sourceNames returns the base names of the snapshot files in time order.
func sourceNames(snapshots []histo.Snapshot) []string {
	names := make([]string, len(snapshots))
	for i, s := range snapshots {
		names[i] = filepath.Base(s.Source)
	}

	return names
}
