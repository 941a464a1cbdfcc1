package trend_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/histotrend/pkg/histo"
	"github.com/Sumatoshi-tech/histotrend/pkg/trend"
)

var baseTime = time.Date(2020, 6, 17, 22, 0, 0, 0, time.UTC)

// snapshot builds a snapshot at baseTime plus minutes from name/bytes pairs.
func snapshot(minutes int, entries map[string]int64, safe *histo.PatternSet) histo.Snapshot {
	measurements := make([]histo.Measurement, 0, len(entries))
	rank := int64(1)

	for name, bytes := range entries {
		class := histo.NewClassInfo(name, safe, nil)
		measurements = append(measurements, histo.NewMeasurement(class, histo.Counts{Rank: rank, Instances: 1, Bytes: bytes}))
		rank++
	}

	return histo.NewSnapshot("dump", baseTime.Add(time.Duration(minutes)*time.Minute), measurements)
}

func utcConfig() trend.AggregateConfig {
	cfg := trend.DefaultAggregateConfig()
	cfg.Location = time.UTC

	return cfg
}

func TestAggregate_Empty(t *testing.T) {
	t.Parallel()

	table, err := trend.Aggregate(context.Background(), nil, utcConfig())
	require.NoError(t, err)

	assert.Empty(t, table.Timestamps)
	assert.Empty(t, table.Trends)
	assert.Zero(t, table.Len())
}

func TestAggregate_AlignsAndClassifies(t *testing.T) {
	t.Parallel()

	safe := histo.MustPatternSet("cache.*")
	snapshots := []histo.Snapshot{
		snapshot(0, map[string]int64{"a.Grow": 100, "b.Stable": 50, "cache.Entry": 10, "d.Late": 7}, safe),
		snapshot(1, map[string]int64{"a.Grow": 200, "b.Stable": 50, "cache.Entry": 20}, safe),
		snapshot(2, map[string]int64{"a.Grow": 400, "b.Stable": 50, "cache.Entry": 40, "c.Temp": 1, "d.Late": 9}, safe),
	}

	table, err := trend.Aggregate(context.Background(), snapshots, utcConfig())
	require.NoError(t, err)

	assert.Equal(t, []int64{
		baseTime.UnixMilli(),
		baseTime.Add(time.Minute).UnixMilli(),
		baseTime.Add(2 * time.Minute).UnixMilli(),
	}, table.Timestamps)

	require.Equal(t, 5, table.Len())

	for name, ct := range table.Trends {
		assert.Len(t, ct.Series, 3, name)
	}

	assert.Equal(t, histo.GrowCritical, table.Trends["a.Grow"].Verdict)
	assert.Equal(t, histo.Stable, table.Trends["b.Stable"].Verdict)
	assert.Equal(t, histo.GrowSafe, table.Trends["cache.Entry"].Verdict)
	assert.Equal(t, histo.Single, table.Trends["c.Temp"].Verdict)
	assert.Equal(t, histo.GrowCritical, table.Trends["d.Late"].Verdict)

	temp := table.Trends["c.Temp"]
	assert.True(t, temp.Series[0].IsGhost())
	assert.True(t, temp.Series[1].IsGhost())
	assert.False(t, temp.Series[2].IsGhost())
	assert.True(t, table.Trends["d.Late"].Series[1].IsGhost())
}

func TestAggregate_WithoutSingleDetection_Unknown(t *testing.T) {
	t.Parallel()

	cfg := utcConfig()
	cfg.DetectSingles = false
	cfg.Workers = 1

	snapshots := []histo.Snapshot{
		snapshot(0, map[string]int64{"a.A": 1}, nil),
		snapshot(1, map[string]int64{"b.B": 1}, nil),
	}

	table, err := trend.Aggregate(context.Background(), snapshots, cfg)
	require.NoError(t, err)

	assert.Equal(t, histo.Unknown, table.Trends["a.A"].Verdict)
	assert.Equal(t, histo.Unknown, table.Trends["b.B"].Verdict)
}

func TestAggregate_SingleSnapshot_Unknown(t *testing.T) {
	t.Parallel()

	table, err := trend.Aggregate(context.Background(), []histo.Snapshot{
		snapshot(0, map[string]int64{"a.A": 1}, nil),
	}, utcConfig())
	require.NoError(t, err)

	assert.Equal(t, histo.Unknown, table.Trends["a.A"].Verdict)
}

func TestAggregate_DeterministicAcrossWorkerCounts(t *testing.T) {
	t.Parallel()

	var snapshots []histo.Snapshot

	for i := range 4 {
		entries := make(map[string]int64)
		for c := range 200 {
			entries[string(rune('A'+c%26))+string(rune('a'+c/26))] = int64((c + 1) * (i + 1 + c%3))
		}

		snapshots = append(snapshots, snapshot(i, entries, nil))
	}

	cfg := utcConfig()
	cfg.Workers = 1

	serial, err := trend.Aggregate(context.Background(), snapshots, cfg)
	require.NoError(t, err)

	cfg.Workers = 16

	parallel, err := trend.Aggregate(context.Background(), snapshots, cfg)
	require.NoError(t, err)

	assert.Equal(t, serial.Ordered(), parallel.Ordered())
}

func TestAggregate_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := trend.Aggregate(ctx, []histo.Snapshot{
		snapshot(0, map[string]int64{"a.A": 1}, nil),
		snapshot(1, map[string]int64{"a.A": 2}, nil),
	}, utcConfig())

	require.ErrorIs(t, err, context.Canceled)
}

func TestEpochMillis_UsesExplicitZone(t *testing.T) {
	t.Parallel()

	amsterdam := time.FixedZone("CEST", 2*60*60)
	wall := time.Date(2020, 6, 17, 22, 25, 38, 960921000, time.UTC)

	assert.Equal(t, wall.UnixMilli(), trend.EpochMillis(wall, nil))
	assert.Equal(t, wall.Add(-2*time.Hour).UnixMilli(), trend.EpochMillis(wall, amsterdam))
}

func TestIsSingle(t *testing.T) {
	t.Parallel()

	class := histo.ClassInfo{Name: "a.A"}
	seen := histo.NewMeasurement(class, histo.Counts{Bytes: 10})
	ghost := histo.Ghost(class)

	assert.True(t, trend.IsSingle([]histo.Measurement{ghost, seen, ghost}))
	assert.False(t, trend.IsSingle([]histo.Measurement{seen}))
	assert.False(t, trend.IsSingle([]histo.Measurement{seen, seen}))
	assert.False(t, trend.IsSingle([]histo.Measurement{ghost, ghost}))
}

func TestAggregate_FirstIdentityWins(t *testing.T) {
	t.Parallel()

	watch := histo.MustPatternSet("a.*")
	first := histo.NewSnapshot("dump", baseTime, []histo.Measurement{
		histo.NewMeasurement(histo.NewClassInfo("a.A", nil, watch), histo.Counts{Rank: 1, Instances: 1, Bytes: 10}),
	})
	second := snapshot(1, map[string]int64{"a.A": 10}, nil)

	table, err := trend.Aggregate(context.Background(), []histo.Snapshot{first, second}, utcConfig())
	require.NoError(t, err)

	assert.True(t, table.Trends["a.A"].Class.OnWatchList)
}
