package trend_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/histotrend/pkg/histo"
	"github.com/Sumatoshi-tech/histotrend/pkg/trend"
)

func classTrend(name string, bytes ...int64) trend.ClassTrend {
	s := series(bytes...)
	class := histo.ClassInfo{Name: name}

	for i := range s {
		if counts, ok := s[i].Counts(); ok {
			s[i] = histo.NewMeasurement(class, counts)
		} else {
			s[i] = histo.Ghost(class)
		}
	}

	return trend.ClassTrend{Class: class, Series: s}
}

func TestNewTable_SeriesLengthMismatch_NamesClasses(t *testing.T) {
	t.Parallel()

	_, err := trend.NewTable([]int64{1, 2}, map[string]trend.ClassTrend{
		"ok":    classTrend("ok", 1, 2),
		"short": classTrend("short", 1),
		"long":  classTrend("long", 1, 2, 3),
	})

	require.ErrorIs(t, err, trend.ErrInconsistentSeries)

	var lengthErr *trend.SeriesLengthError
	require.True(t, errors.As(err, &lengthErr))
	assert.Equal(t, 2, lengthErr.Expected)
	assert.Equal(t, []string{"long", "short"}, lengthErr.Classes)
	assert.Contains(t, err.Error(), "long, short")
}

func TestTable_Ordered_BySizeGhostLast(t *testing.T) {
	t.Parallel()

	table, err := trend.NewTable([]int64{1, 2}, map[string]trend.ClassTrend{
		"small":  classTrend("small", 5, 10),
		"big":    classTrend("big", 5, 1000),
		"gone":   classTrend("gone", 5000, ghost),
		"tie.b":  classTrend("tie.b", 1, 50),
		"tie.a":  classTrend("tie.a", 1, 50),
		"zeroed": classTrend("zeroed", 1, 0),
	})
	require.NoError(t, err)

	names := make([]string, 0, table.Len())
	for _, ct := range table.Ordered() {
		names = append(names, ct.Class.Name)
	}

	assert.Equal(t, []string{"big", "tie.a", "tie.b", "small", "zeroed", "gone"}, names)
}

func TestClassTrend_Last(t *testing.T) {
	t.Parallel()

	ct := classTrend("a", 3, 4)
	counts, ok := ct.Last()
	require.True(t, ok)
	assert.Equal(t, int64(4), counts.Bytes)

	_, ok = trend.ClassTrend{}.Last()
	assert.False(t, ok)
	assert.Equal(t, int64(-1), classTrend("g", 1, ghost).LastBytes())
}
