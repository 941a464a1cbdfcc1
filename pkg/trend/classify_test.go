package trend_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/histotrend/pkg/histo"
	"github.com/Sumatoshi-tech/histotrend/pkg/trend"
)

const ghost = int64(-1)

var testClass = histo.ClassInfo{Name: "nl.stokpop.Leaky"}

// series builds a byte size series; ghost marks an absent snapshot.
func series(bytes ...int64) []histo.Measurement {
	out := make([]histo.Measurement, len(bytes))

	for i, b := range bytes {
		if b == ghost {
			out[i] = histo.Ghost(testClass)

			continue
		}

		out[i] = histo.NewMeasurement(testClass, histo.Counts{Rank: int64(i + 1), Instances: b / 8, Bytes: b})
	}

	return out
}

func withMax(maxGrowth float64) trend.ClassifyOptions {
	opts := trend.DefaultClassifyOptions()
	opts.MaxGrowthPercentage = maxGrowth

	return opts
}

func TestClassify_TooShort_Unknown(t *testing.T) {
	t.Parallel()

	opts := trend.DefaultClassifyOptions()

	assert.Equal(t, histo.Unknown, trend.Classify(nil, opts))
	assert.Equal(t, histo.Unknown, trend.Classify(series(), opts))
	assert.Equal(t, histo.Unknown, trend.Classify(series(1), opts))
	assert.Equal(t, histo.Unknown, trend.Classify(series(ghost), opts))
}

func TestClassify_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []histo.Measurement
		opts trend.ClassifyOptions
		want histo.Verdict
	}{
		{"critical growth", series(1, 2), trend.DefaultClassifyOptions(), histo.GrowCritical},
		{"minor growth at bound", series(10, 12), withMax(20.0), histo.GrowMinor},
		{"critical just above bound", series(10, 13), withMax(20.0), histo.GrowCritical},
		{"stable", series(1, 1), trend.DefaultClassifyOptions(), histo.Stable},
		{"shrink", series(2, 1), trend.DefaultClassifyOptions(), histo.Shrink},
		{"shrink and grow", series(1, 2, 1), trend.DefaultClassifyOptions(), histo.ShrinkAndGrow},
		{"grow then shrink", series(100, 50, 200), trend.DefaultClassifyOptions(), histo.ShrinkAndGrow},
		{"shrink with stable", series(5, 5, 3, 3), trend.DefaultClassifyOptions(), histo.Shrink},
		{"critical with stable", series(5, 10, 10), trend.DefaultClassifyOptions(), histo.GrowCritical},
		{"hick-ups", series(5, 5, 5, 10), trend.DefaultClassifyOptions(), histo.GrowHickUps},
		{"minor hick-ups", series(100, 100, 100, 101), trend.DefaultClassifyOptions(), histo.GrowHickUps},
		{"mixed critical and minor", series(100, 101, 200), trend.DefaultClassifyOptions(), histo.GrowCritical},
		{"all ghosts after first", series(10, ghost, ghost), trend.DefaultClassifyOptions(), histo.Unknown},
		{"all ghosts before last", series(ghost, ghost, 10), trend.DefaultClassifyOptions(), histo.Unknown},
		{"only ghosts", series(ghost, ghost, ghost), trend.DefaultClassifyOptions(), histo.Unknown},
		{"growth ending in ghost", series(1, 2, ghost), trend.DefaultClassifyOptions(), histo.Unknown},
		{"stable ending in ghost", series(1, 1, ghost), trend.DefaultClassifyOptions(), histo.Stable},
		{"shrink ending in ghost", series(4, 2, ghost), trend.DefaultClassifyOptions(), histo.Shrink},
		{"leading ghost", series(ghost, 10, 20), trend.DefaultClassifyOptions(), histo.GrowCritical},
		{"ghost gap compares last real", series(100, ghost, 105), trend.DefaultClassifyOptions(), histo.GrowMinor},
		{"ghost gap shrink", series(100, ghost, 90), trend.DefaultClassifyOptions(), histo.Shrink},
		{"growth from zero", series(0, 1), withMax(1_000_000), histo.GrowCritical},
		{"zero to zero", series(0, 0), trend.DefaultClassifyOptions(), histo.Stable},
		{"instances metric", series(80, 80), trend.ClassifyOptions{
			MaxGrowthPercentage: 10, MinGrowthPointsPercentage: 50, Metric: histo.InstanceCount,
		}, histo.Stable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, trend.Classify(tt.in, tt.opts))
		})
	}
}

func TestClassify_SafeToGrow_OnlyAffectsGrowth(t *testing.T) {
	t.Parallel()

	opts := trend.DefaultClassifyOptions()
	opts.SafeToGrow = true

	assert.Equal(t, histo.GrowSafe, trend.Classify(series(1, 2), opts))
	assert.Equal(t, histo.GrowSafe, trend.Classify(series(100, 101), opts))
	assert.Equal(t, histo.GrowSafe, trend.Classify(series(5, 5, 5, 10), opts))
	assert.Equal(t, histo.Shrink, trend.Classify(series(2, 1), opts))
	assert.Equal(t, histo.Stable, trend.Classify(series(1, 1), opts))
	assert.Equal(t, histo.ShrinkAndGrow, trend.Classify(series(1, 2, 1), opts))
	assert.Equal(t, histo.Unknown, trend.Classify(series(1, 2, ghost), opts))
}

func TestClassify_NilMetric_UsesByteSize(t *testing.T) {
	t.Parallel()

	opts := trend.ClassifyOptions{MaxGrowthPercentage: 10, MinGrowthPointsPercentage: 50}

	assert.Equal(t, histo.GrowCritical, trend.Classify(series(8, 80), opts))
}

func TestClassifyDetailed_StrictlyIncreasing_AllGrowth(t *testing.T) {
	t.Parallel()

	for n := 2; n <= 12; n++ {
		values := make([]int64, n)
		for i := range values {
			values[i] = int64(1000 + i*(i+1))
		}

		verdict, tally := trend.ClassifyDetailed(series(values...), trend.DefaultClassifyOptions())

		assert.Equal(t, n-1, tally.TotalGrowth(), "n=%d", n)
		assert.True(t, verdict.IsGrowth(), "n=%d verdict=%s", n, verdict)
		assert.InDelta(t, 100.0, tally.GrowthPointsPercentage(), 1e-9)
	}
}

func TestClassifyDetailed_Counters(t *testing.T) {
	t.Parallel()

	verdict, tally := trend.ClassifyDetailed(series(10, 20, ghost, 15, 15, ghost), trend.DefaultClassifyOptions())

	assert.Equal(t, histo.ShrinkAndGrow, verdict)
	assert.Equal(t, trend.Tally{
		GrowthCritical: 1,
		Shrink:         1,
		Stable:         1,
		Ghost:          2,
		Comparisons:    5,
		LastIsGhost:    true,
	}, tally)
}
