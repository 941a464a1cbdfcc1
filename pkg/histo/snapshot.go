package histo

import "time"

// Snapshot is one parsed heap histogram dump.
type Snapshot struct {
	// Source names where the dump was read from, usually a file path.
	Source string
	// Timestamp is the wall clock time the dump was taken. Its location is
	// not meaningful; the aggregator places it in the configured zone.
	Timestamp    time.Time
	Measurements []Measurement

	index map[string]int
}

// NewSnapshot builds a snapshot. When a class name occurs more than once the
// first occurrence is kept.
func NewSnapshot(source string, timestamp time.Time, measurements []Measurement) Snapshot {
	index := make(map[string]int, len(measurements))
	kept := make([]Measurement, 0, len(measurements))

	for _, m := range measurements {
		if _, dup := index[m.Class.Name]; dup {
			continue
		}

		index[m.Class.Name] = len(kept)
		kept = append(kept, m)
	}

	return Snapshot{
		Source:       source,
		Timestamp:    timestamp,
		Measurements: kept,
		index:        index,
	}
}

// Lookup returns the measurement for the named class.
func (s Snapshot) Lookup(name string) (Measurement, bool) {
	if s.index == nil {
		for _, m := range s.Measurements {
			if m.Class.Name == name {
				return m, true
			}
		}

		return Measurement{}, false
	}

	i, ok := s.index[name]
	if !ok {
		return Measurement{}, false
	}

	return s.Measurements[i], true
}

// Classes returns the identities in dump order.
func (s Snapshot) Classes() []ClassInfo {
	classes := make([]ClassInfo, len(s.Measurements))
	for i, m := range s.Measurements {
		classes[i] = m.Class
	}

	return classes
}
