package trend

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/histotrend/pkg/histo"
)

// ErrInconsistentSeries reports a class series whose length differs from the
// number of snapshots. It indicates an aggregation defect, not bad input.
var ErrInconsistentSeries = errors.New("inconsistent series length")

// SeriesLengthError lists the classes whose series length is wrong.
type SeriesLengthError struct {
	Expected int
	Classes  []string
}

func (e *SeriesLengthError) Error() string {
	return fmt.Sprintf("%s: expected %d entries for %s",
		ErrInconsistentSeries, e.Expected, strings.Join(e.Classes, ", "))
}

func (e *SeriesLengthError) Unwrap() error {
	return ErrInconsistentSeries
}

// ClassTrend is one class's aligned series and its verdict. Series[i]
// belongs to the i-th snapshot of the analysis.
type ClassTrend struct {
	Class   histo.ClassInfo
	Series  []histo.Measurement
	Verdict histo.Verdict
}

// Last returns the counts of the final snapshot; ok is false when the class
// was absent from it.
func (ct ClassTrend) Last() (counts histo.Counts, ok bool) {
	if len(ct.Series) == 0 {
		return histo.Counts{}, false
	}

	return ct.Series[len(ct.Series)-1].Counts()
}

// LastBytes returns the final byte size, or -1 when the last entry is a ghost.
func (ct ClassTrend) LastBytes() int64 {
	counts, ok := ct.Last()
	if !ok {
		return -1
	}

	return counts.Bytes
}

// Table is the result of an aggregation. Trends has no meaningful iteration
// order; use Ordered for presentation.
type Table struct {
	// Timestamps are the snapshot times in epoch milliseconds, ascending.
	Timestamps []int64
	Trends     map[string]ClassTrend
}

// NewTable checks that every series has one entry per timestamp.
func NewTable(timestamps []int64, trends map[string]ClassTrend) (*Table, error) {
	var bad []string

	for name, ct := range trends {
		if len(ct.Series) != len(timestamps) {
			bad = append(bad, name)
		}
	}

	if len(bad) > 0 {
		slices.Sort(bad)

		return nil, &SeriesLengthError{Expected: len(timestamps), Classes: bad}
	}

	if trends == nil {
		trends = map[string]ClassTrend{}
	}

	return &Table{Timestamps: timestamps, Trends: trends}, nil
}

// Len returns the number of classes.
func (t *Table) Len() int {
	return len(t.Trends)
}

// Ordered returns the trends sorted by CompareBySize.
func (t *Table) Ordered() []ClassTrend {
	ordered := make([]ClassTrend, 0, len(t.Trends))
	for _, ct := range t.Trends {
		ordered = append(ordered, ct)
	}

	slices.SortFunc(ordered, CompareBySize)

	return ordered
}

// CompareBySize orders trends by descending final byte size. A class absent
// from the final snapshot sorts after every present one. Equal sizes fall
// back to the class name.
func CompareBySize(a, b ClassTrend) int {
	if c := cmp.Compare(b.LastBytes(), a.LastBytes()); c != 0 {
		return c
	}

	return cmp.Compare(a.Class.Name, b.Class.Name)
}
