package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/histotrend/pkg/histo"
)

const (
	metricSnapshotsTotal   = "histotrend.analysis.snapshots.total"
	metricClassesTotal     = "histotrend.analysis.classes.total"
	metricVerdictsTotal    = "histotrend.analysis.verdicts.total"
	metricAnalysisDuration = "histotrend.analysis.duration.seconds"

	metricRequestsTotal   = "histotrend.requests.total"
	metricRequestDuration = "histotrend.request.duration.seconds"
	metricErrorsTotal     = "histotrend.errors.total"

	attrVerdict = "verdict"
	attrOp      = "op"
	attrStatus  = "status"

	// StatusOK and StatusError are the request status attribute values.
	StatusOK    = "ok"
	StatusError = "error"
)

// durationBucketBoundaries spans quick single-dump runs to large batches.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// AnalysisStats summarizes one completed analysis.
type AnalysisStats struct {
	Snapshots int
	Classes   int
	Verdicts  map[histo.Verdict]int
	Duration  time.Duration
}

// AnalysisMetrics holds instruments describing analysis runs.
type AnalysisMetrics struct {
	snapshots metric.Int64Counter
	classes   metric.Int64Counter
	verdicts  metric.Int64Counter
	duration  metric.Float64Histogram
}

// NewAnalysisMetrics creates the analysis instruments on mt.
func NewAnalysisMetrics(mt metric.Meter) (*AnalysisMetrics, error) {
	snapshots, err := mt.Int64Counter(metricSnapshotsTotal,
		metric.WithDescription("Heap histogram snapshots read"),
		metric.WithUnit("{snapshot}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricSnapshotsTotal, err)
	}

	classes, err := mt.Int64Counter(metricClassesTotal,
		metric.WithDescription("Classes classified"),
		metric.WithUnit("{class}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricClassesTotal, err)
	}

	verdicts, err := mt.Int64Counter(metricVerdictsTotal,
		metric.WithDescription("Classes counted per verdict"),
		metric.WithUnit("{class}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricVerdictsTotal, err)
	}

	duration, err := mt.Float64Histogram(metricAnalysisDuration,
		metric.WithDescription("Analysis duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricAnalysisDuration, err)
	}

	return &AnalysisMetrics{
		snapshots: snapshots,
		classes:   classes,
		verdicts:  verdicts,
		duration:  duration,
	}, nil
}

// RecordRun records a completed analysis. Safe on a nil receiver.
func (am *AnalysisMetrics) RecordRun(ctx context.Context, stats AnalysisStats) {
	if am == nil {
		return
	}

	am.snapshots.Add(ctx, int64(stats.Snapshots))
	am.classes.Add(ctx, int64(stats.Classes))
	am.duration.Record(ctx, stats.Duration.Seconds())

	for v, n := range stats.Verdicts {
		am.verdicts.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrVerdict, v.String())))
	}
}

// REDMetrics holds rate, error and duration instruments for MCP tool calls.
type REDMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewREDMetrics creates the request instruments on mt.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	requests, err := mt.Int64Counter(metricRequestsTotal,
		metric.WithDescription("Total number of requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestsTotal, err)
	}

	duration, err := mt.Float64Histogram(metricRequestDuration,
		metric.WithDescription("Request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestDuration, err)
	}

	errs, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Total number of failed requests"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	return &REDMetrics{requests: requests, duration: duration, errors: errs}, nil
}

// RecordRequest records a finished request. Safe on a nil receiver.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op, status string, d time.Duration) {
	if rm == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	rm.requests.Add(ctx, 1, attrs)
	rm.duration.Record(ctx, d.Seconds(), attrs)

	if status == StatusError {
		rm.errors.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
	}
}
