package histo

// Counts are the numbers reported for one class in one heap histogram line.
type Counts struct {
	Rank      int64 `json:"rank"      yaml:"rank"`
	Instances int64 `json:"instances" yaml:"instances"`
	Bytes     int64 `json:"bytes"     yaml:"bytes"`
}

// Metric selects the value of Counts a trend is computed on.
type Metric func(Counts) int64

// ByteSize is the Metric for the total bytes occupied by a class.
func ByteSize(c Counts) int64 { return c.Bytes }

// InstanceCount is the Metric for the number of live instances of a class.
func InstanceCount(c Counts) int64 { return c.Instances }

// Measurement is one class's entry in one snapshot. A measurement either
// carries Counts or is a ghost, meaning the class was absent from that
// snapshot. Ghosts are never read from a dump; they pad aligned series.
type Measurement struct {
	Class  ClassInfo
	counts *Counts
}

// NewMeasurement returns a present measurement.
func NewMeasurement(class ClassInfo, counts Counts) Measurement {
	return Measurement{Class: class, counts: &counts}
}

// Ghost returns a measurement marking class as absent.
func Ghost(class ClassInfo) Measurement {
	return Measurement{Class: class}
}

// IsGhost reports whether the class was absent from the snapshot.
func (m Measurement) IsGhost() bool {
	return m.counts == nil
}

// Counts returns the measured counts; ok is false for a ghost.
func (m Measurement) Counts() (counts Counts, ok bool) {
	if m.counts == nil {
		return Counts{}, false
	}

	return *m.counts, true
}

// Value applies metric; ok is false for a ghost.
func (m Measurement) Value(metric Metric) (value int64, ok bool) {
	if m.counts == nil {
		return 0, false
	}

	return metric(*m.counts), true
}

// Values extracts metric from every measurement. Ghost entries are nil.
func Values(series []Measurement, metric Metric) []*int64 {
	values := make([]*int64, len(series))

	for i, m := range series {
		if v, ok := m.Value(metric); ok {
			values[i] = &v
		}
	}

	return values
}

// ByteSeries builds a series for class from byte sizes. Nil entries become
// ghosts.
func ByteSeries(class ClassInfo, sizes []*int64) []Measurement {
	series := make([]Measurement, len(sizes))

	for i, size := range sizes {
		if size == nil {
			series[i] = Ghost(class)

			continue
		}

		series[i] = NewMeasurement(class, Counts{Bytes: *size})
	}

	return series
}
