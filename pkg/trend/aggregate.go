package trend

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/histotrend/pkg/histo"
)

// AggregateConfig configures Aggregate.
type AggregateConfig struct {
	MaxGrowthPercentage       float64
	MinGrowthPointsPercentage float64
	// Location is the zone snapshot wall clock times are read in. Nil means UTC.
	Location *time.Location
	// Workers bounds parallel classification. Zero or less uses GOMAXPROCS.
	Workers int
	// DetectSingles assigns SINGLE to classes present in exactly one snapshot.
	DetectSingles bool
}

// DefaultAggregateConfig returns the default thresholds in the local zone.
func DefaultAggregateConfig() AggregateConfig {
	return AggregateConfig{
		MaxGrowthPercentage:       DefaultMaxGrowthPercentage,
		MinGrowthPointsPercentage: DefaultMinGrowthPointsPercentage,
		Location:                  time.Local,
		DetectSingles:             true,
	}
}

// Aggregate aligns every class seen in snapshots across all of them, padding
// absences with ghosts, and classifies each class on byte size. Snapshots
// must already be ordered by time.
func Aggregate(ctx context.Context, snapshots []histo.Snapshot, cfg AggregateConfig) (*Table, error) {
	if len(snapshots) == 0 {
		return NewTable([]int64{}, map[string]ClassTrend{})
	}

	timestamps := make([]int64, len(snapshots))
	for i, s := range snapshots {
		timestamps[i] = EpochMillis(s.Timestamp, cfg.Location)
	}

	classes := unionClasses(snapshots)
	results := make([]ClassTrend, len(classes))

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, class := range classes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			results[i] = buildTrend(class, snapshots, cfg)

			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, fmt.Errorf("classify classes: %w", err)
	}

	trends := make(map[string]ClassTrend, len(results))
	for _, ct := range results {
		trends[ct.Class.Name] = ct
	}

	return NewTable(timestamps, trends)
}

// EpochMillis reads the wall clock of t in loc and returns epoch milliseconds.
func EpochMillis(t time.Time, loc *time.Location) int64 {
	if loc == nil {
		loc = time.UTC
	}

	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)

	return wall.UnixMilli()
}

// unionClasses returns every class in first-seen order. The identity of the
// first occurrence wins.
func unionClasses(snapshots []histo.Snapshot) []histo.ClassInfo {
	seen := make(map[string]struct{})

	var classes []histo.ClassInfo

	for _, s := range snapshots {
		for _, class := range s.Classes() {
			if _, ok := seen[class.Name]; ok {
				continue
			}

			seen[class.Name] = struct{}{}
			classes = append(classes, class)
		}
	}

	return classes
}

func buildTrend(class histo.ClassInfo, snapshots []histo.Snapshot, cfg AggregateConfig) ClassTrend {
	series := make([]histo.Measurement, len(snapshots))

	for i, s := range snapshots {
		m, ok := s.Lookup(class.Name)
		if !ok {
			m = histo.Ghost(class)
		}

		series[i] = m
	}

	if cfg.DetectSingles && IsSingle(series) {
		return ClassTrend{Class: class, Series: series, Verdict: histo.Single}
	}

	verdict := Classify(series, ClassifyOptions{
		SafeToGrow:                class.OnSafeList,
		MaxGrowthPercentage:       cfg.MaxGrowthPercentage,
		MinGrowthPointsPercentage: cfg.MinGrowthPointsPercentage,
		Metric:                    histo.ByteSize,
	})

	return ClassTrend{Class: class, Series: series, Verdict: verdict}
}

// IsSingle reports whether series spans at least two snapshots but the class
// is present in exactly one of them.
func IsSingle(series []histo.Measurement) bool {
	if len(series) < 2 {
		return false
	}

	present := 0

	for _, m := range series {
		if !m.IsGhost() {
			present++
		}
	}

	return present == 1
}
