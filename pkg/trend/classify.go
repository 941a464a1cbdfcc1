// Package trend classifies the direction of a class's size over a series of
// heap histogram snapshots and aggregates the verdicts of all classes.
package trend

import "github.com/Sumatoshi-tech/histotrend/pkg/histo"

// Default classification thresholds.
const (
	DefaultMaxGrowthPercentage       = 10.0
	DefaultMinGrowthPointsPercentage = 50.0
)

const percent = 100.0

// ClassifyOptions configures Classify.
type ClassifyOptions struct {
	// SafeToGrow turns any growth verdict into GROW_SAFE.
	SafeToGrow bool
	// MaxGrowthPercentage is the largest step-to-step growth still counted as
	// minor. The bound is inclusive.
	MaxGrowthPercentage float64
	// MinGrowthPointsPercentage is the share of comparisons that must show
	// growth for the series to count as steadily growing.
	MinGrowthPointsPercentage float64
	// Metric selects the value compared between snapshots. Nil means byte size.
	Metric histo.Metric
}

// DefaultClassifyOptions returns byte size classification with default thresholds.
func DefaultClassifyOptions() ClassifyOptions {
	return ClassifyOptions{
		MaxGrowthPercentage:       DefaultMaxGrowthPercentage,
		MinGrowthPointsPercentage: DefaultMinGrowthPointsPercentage,
		Metric:                    histo.ByteSize,
	}
}

// Tally holds the per-comparison counters Classify derives its verdict from.
type Tally struct {
	GrowthCritical int `json:"growthCritical"`
	GrowthMinor    int `json:"growthMinor"`
	Shrink         int `json:"shrink"`
	Stable         int `json:"stable"`
	Ghost          int `json:"ghost"`
	// Comparisons is the number of adjacent pairs, len(series)-1.
	Comparisons int  `json:"comparisons"`
	LastIsGhost bool `json:"lastIsGhost"`
}

// TotalGrowth is the number of comparisons showing critical or minor growth.
func (t Tally) TotalGrowth() int {
	return t.GrowthCritical + t.GrowthMinor
}

// GrowthPointsPercentage is TotalGrowth as a percentage of Comparisons.
func (t Tally) GrowthPointsPercentage() float64 {
	if t.Comparisons == 0 {
		return 0
	}

	return percent * float64(t.TotalGrowth()) / float64(t.Comparisons)
}

// Classify returns the verdict for one class's aligned series.
// It never returns SINGLE; see AggregateConfig.DetectSingles.
func Classify(series []histo.Measurement, opts ClassifyOptions) histo.Verdict {
	verdict, _ := ClassifyDetailed(series, opts)

	return verdict
}

// ClassifyDetailed is Classify that also returns the counters behind the verdict.
func ClassifyDetailed(series []histo.Measurement, opts ClassifyOptions) (histo.Verdict, Tally) {
	if len(series) < 2 {
		return histo.Unknown, Tally{}
	}

	tally := count(series, opts)

	return decide(tally, opts), tally
}

func count(series []histo.Measurement, opts ClassifyOptions) Tally {
	metric := opts.Metric
	if metric == nil {
		metric = histo.ByteSize
	}

	tally := Tally{Comparisons: len(series) - 1}

	var (
		last    int64
		hasLast bool
	)

	// A ghost leaves last untouched, so the next real value is compared with
	// the last real value before the gap.
	for _, m := range series {
		current, ok := m.Value(metric)
		if !ok {
			tally.Ghost++
			tally.LastIsGhost = true

			continue
		}

		tally.LastIsGhost = false

		if hasLast {
			tally.score(last, current, opts.MaxGrowthPercentage)
		}

		last = current
		hasLast = true
	}

	return tally
}

func (t *Tally) score(last, current int64, maxGrowthPercentage float64) {
	switch {
	case current > last:
		// Growth from zero has no finite percentage and is always critical.
		if last == 0 || growthPercentage(last, current) > maxGrowthPercentage {
			t.GrowthCritical++
		} else {
			t.GrowthMinor++
		}
	case current < last:
		t.Shrink++
	default:
		t.Stable++
	}
}

func growthPercentage(last, current int64) float64 {
	return percent * float64(current-last) / float64(last)
}

func decide(t Tally, opts ClassifyOptions) histo.Verdict {
	// No two real values were ever compared. Covers an all-ghost series too.
	if t.Ghost >= t.Comparisons {
		return histo.Unknown
	}

	enoughGrowthPoints := t.GrowthPointsPercentage() >= opts.MinGrowthPointsPercentage

	switch {
	case t.GrowthCritical > 0 && t.TotalGrowth()+t.Ghost+t.Stable == t.Comparisons && !t.LastIsGhost:
		return growthVerdict(histo.GrowCritical, opts.SafeToGrow, enoughGrowthPoints)
	case t.GrowthMinor > 0 && t.GrowthMinor+t.Ghost+t.Stable == t.Comparisons && !t.LastIsGhost:
		return growthVerdict(histo.GrowMinor, opts.SafeToGrow, enoughGrowthPoints)
	case t.TotalGrowth()+t.Ghost == t.Comparisons && t.LastIsGhost:
		return histo.Unknown
	case t.Shrink > 0 && t.Shrink+t.Ghost+t.Stable == t.Comparisons:
		return histo.Shrink
	case t.Stable+t.Ghost == t.Comparisons:
		return histo.Stable
	default:
		return histo.ShrinkAndGrow
	}
}

func growthVerdict(severity histo.Verdict, safeToGrow, enoughGrowthPoints bool) histo.Verdict {
	switch {
	case safeToGrow:
		return histo.GrowSafe
	case enoughGrowthPoints:
		return severity
	default:
		return histo.GrowHickUps
	}
}
