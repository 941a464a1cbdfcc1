package report_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/histotrend/pkg/histo"
	"github.com/Sumatoshi-tech/histotrend/pkg/report"
	"github.com/Sumatoshi-tech/histotrend/pkg/trend"
)

const ghost = int64(-1)

type trendSpec struct {
	name    string
	watch   bool
	verdict histo.Verdict
	bytes   []int64
}

func buildTable(t *testing.T, specs ...trendSpec) *trend.Table {
	t.Helper()

	trends := make(map[string]trend.ClassTrend, len(specs))
	timestamps := []int64{}

	for _, s := range specs {
		class := histo.ClassInfo{Name: s.name, OnWatchList: s.watch}
		series := make([]histo.Measurement, len(s.bytes))

		for i, b := range s.bytes {
			if b == ghost {
				series[i] = histo.Ghost(class)

				continue
			}

			series[i] = histo.NewMeasurement(class, histo.Counts{Rank: 1, Instances: b / 16, Bytes: b})
		}

		trends[s.name] = trend.ClassTrend{Class: class, Series: series, Verdict: s.verdict}

		if len(timestamps) < len(s.bytes) {
			timestamps = make([]int64, len(s.bytes))
			for i := range timestamps {
				timestamps[i] = int64(1000 * (i + 1))
			}
		}
	}

	table, err := trend.NewTable(timestamps, trends)
	require.NoError(t, err)

	return table
}

func names(details []report.ClassDetails) []string {
	out := make([]string, len(details))
	for i, d := range details {
		out[i] = d.Class.Name
	}

	return out
}

func allVerdicts() histo.VerdictSet {
	return histo.NewVerdictSet(histo.Verdicts()...)
}

func TestBuild_EmptyTable(t *testing.T) {
	t.Parallel()

	rep := report.Build(buildTable(t), report.DefaultLimits())

	assert.Equal(t, histo.Unknown, rep.Verdict)
	assert.Empty(t, rep.Details)
	assert.Empty(t, rep.Timestamps)
	require.Len(t, rep.Histogram, len(histo.Verdicts()))

	for v, n := range rep.Histogram {
		assert.Zero(t, n, v.String())
	}
}

func TestBuild_HistogramSkipsClassesAtOrBelowFloor(t *testing.T) {
	t.Parallel()

	table := buildTable(t,
		trendSpec{name: "big", verdict: histo.Stable, bytes: []int64{5000, 5000}},
		trendSpec{name: "floor", verdict: histo.GrowCritical, bytes: []int64{100, 2048}},
		trendSpec{name: "gone", verdict: histo.Unknown, bytes: []int64{9000, ghost}},
		trendSpec{name: "shrinking", verdict: histo.Shrink, bytes: []int64{9000, 3000}},
	)

	rep := report.Build(table, report.DefaultLimits())

	assert.Equal(t, 1, rep.Histogram[histo.Stable])
	assert.Equal(t, 1, rep.Histogram[histo.Shrink])
	assert.Zero(t, rep.Histogram[histo.GrowCritical])
	assert.Zero(t, rep.Histogram[histo.Unknown])
	assert.Equal(t, histo.Shrink, rep.Verdict)
}

func TestBuild_OverallVerdictPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		verdicts []histo.Verdict
		want     histo.Verdict
	}{
		{"critical wins", []histo.Verdict{histo.Stable, histo.GrowMinor, histo.GrowCritical}, histo.GrowCritical},
		{"minor over safe", []histo.Verdict{histo.GrowSafe, histo.GrowMinor}, histo.GrowMinor},
		{"safe over shrink", []histo.Verdict{histo.Shrink, histo.GrowSafe}, histo.GrowSafe},
		{"shrink over stable", []histo.Verdict{histo.Stable, histo.Shrink}, histo.Shrink},
		{"stable", []histo.Verdict{histo.Stable, histo.Single}, histo.Stable},
		{"others roll up to unknown", []histo.Verdict{histo.ShrinkAndGrow, histo.GrowHickUps, histo.Single}, histo.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			specs := make([]trendSpec, len(tt.verdicts))
			for i, v := range tt.verdicts {
				specs[i] = trendSpec{name: v.String(), verdict: v, bytes: []int64{10_000, 10_000}}
			}

			rep := report.Build(buildTable(t, specs...), report.DefaultLimits())
			assert.Equal(t, tt.want, rep.Verdict)
		})
	}
}

func TestBuild_FiltersByEnabledVerdictAndFloor(t *testing.T) {
	t.Parallel()

	table := buildTable(t,
		trendSpec{name: "crit", verdict: histo.GrowCritical, bytes: []int64{3000, 6000}},
		trendSpec{name: "minor", verdict: histo.GrowMinor, bytes: []int64{3000, 3100}},
		trendSpec{name: "stable", verdict: histo.Stable, bytes: []int64{9000, 9000}},
		trendSpec{name: "tiny", verdict: histo.GrowCritical, bytes: []int64{10, 2000}},
	)

	rep := report.Build(table, report.DefaultLimits())

	assert.Equal(t, []string{"crit", "minor"}, names(rep.Details))
	assert.Equal(t, []string{"crit"}, names(rep.DetailsFor(histo.GrowCritical)))
	assert.Empty(t, rep.DetailsFor(histo.Stable))
}

func TestBuild_WatchListBypassesFloorAndLimit(t *testing.T) {
	t.Parallel()

	table := buildTable(t,
		trendSpec{name: "big1", verdict: histo.GrowCritical, bytes: []int64{90_000, 100_000}},
		trendSpec{name: "big2", verdict: histo.GrowCritical, bytes: []int64{80_000, 90_000}},
		trendSpec{name: "big3", verdict: histo.GrowCritical, bytes: []int64{70_000, 80_000}},
		trendSpec{name: "watched.small", watch: true, verdict: histo.GrowCritical, bytes: []int64{1, 16}},
		trendSpec{name: "watched.mid", watch: true, verdict: histo.GrowMinor, bytes: []int64{85_000, 85_001}},
		trendSpec{name: "watched.stable", watch: true, verdict: histo.Stable, bytes: []int64{5, 5}},
	)

	limits := report.DefaultLimits()
	limits.ClassLimit = 2

	rep := report.Build(table, limits)

	assert.Equal(t, []string{"big1", "big2", "watched.mid", "watched.small"}, names(rep.Details))
}

func TestBuild_ClassLimitKeepsLargest(t *testing.T) {
	t.Parallel()

	table := buildTable(t,
		trendSpec{name: "a", verdict: histo.GrowCritical, bytes: []int64{3000, 4000}},
		trendSpec{name: "b", verdict: histo.GrowCritical, bytes: []int64{3000, 9000}},
		trendSpec{name: "c", verdict: histo.GrowCritical, bytes: []int64{3000, 6000}},
	)

	limits := report.DefaultLimits()
	limits.ClassLimit = 2

	assert.Equal(t, []string{"b", "c"}, names(report.Build(table, limits).Details))

	limits.ClassLimit = -1
	assert.Len(t, report.Build(table, limits).Details, 3)

	limits.ClassLimit = 0
	assert.Empty(t, report.Build(table, limits).Details)
}

func TestBuild_DiffSeries(t *testing.T) {
	t.Parallel()

	table := buildTable(t,
		trendSpec{name: "gappy", watch: true, verdict: histo.ShrinkAndGrow, bytes: []int64{160, 320, ghost, 480, 320}},
	)

	limits := report.DefaultLimits()
	limits.Report = allVerdicts()

	rep := report.Build(table, limits)
	require.Len(t, rep.Details, 1)

	d := rep.Details[0]

	assert.Equal(t, []any{int64(160), int64(320), nil, int64(480), int64(320)}, deref(d.Bytes))
	assert.Equal(t, []any{int64(0), int64(160), nil, nil, int64(-160)}, deref(d.BytesDiff))
	assert.Equal(t, []any{int64(10), int64(20), nil, int64(30), int64(20)}, deref(d.Instances))
	assert.Equal(t, []any{int64(0), int64(10), nil, nil, int64(-10)}, deref(d.InstancesDiff))
	assert.Equal(t, int64(320), d.LastBytes())
	assert.Equal(t, []int64{1000, 2000, 3000, 4000, 5000}, rep.Timestamps)
}

func TestDiff_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, report.Diff(nil))
}

func deref(values []*int64) []any {
	out := make([]any, len(values))

	for i, v := range values {
		if v != nil {
			out[i] = *v
		}
	}

	return out
}

func TestMetaLocation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		zone   string
		want   string
		offset int
	}{
		{zone: "", want: "UTC"},
		{zone: "UTC", want: "UTC"},
		{zone: "+02:00", want: "+02:00", offset: 2 * 60 * 60},
		{zone: "-05:30", want: "-05:30", offset: -(5*60*60 + 30*60)},
		{zone: "Not/AZone", want: "UTC"},
	}

	for _, tt := range tests {
		loc := report.Meta{TimeZone: tt.zone}.Location()
		assert.Equal(t, tt.want, loc.String(), tt.zone)

		_, offset := time.Date(2020, 6, 17, 0, 0, 0, 0, loc).Zone()
		assert.Equal(t, tt.offset, offset, tt.zone)
	}

	assert.Same(t, time.Local, report.Meta{TimeZone: "Local"}.Location())
}
