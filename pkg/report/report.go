// Package report turns a trend table into a leak report: verdict counts,
// an overall verdict and the filtered, ranked per-class details.
package report

import (
	"slices"
	"time"

	"github.com/Sumatoshi-tech/histotrend/pkg/histo"
	"github.com/Sumatoshi-tech/histotrend/pkg/trend"
)

// Default report limits.
const (
	DefaultClassLimit = 128
	DefaultByteFloor  = 2048
)

// Limits selects which classes a report lists and records the thresholds the
// table was classified with.
type Limits struct {
	// ClassLimit caps the number of listed classes that are not watched.
	// A negative limit lists all of them.
	ClassLimit int `json:"classLimit" yaml:"class_limit"`
	// ByteFloor excludes classes whose final byte size is not above it.
	// Watched classes are listed regardless.
	ByteFloor                 int64            `json:"byteLimit"                 yaml:"byte_limit"`
	MaxGrowthPercentage       float64          `json:"maxGrowthPercentage"       yaml:"max_growth_percentage"`
	MinGrowthPointsPercentage float64          `json:"minGrowthPointsPercentage" yaml:"min_growth_points_percentage"`
	SafeList                  []string         `json:"safeList"                  yaml:"safe_list"`
	WatchList                 []string         `json:"watchList"                 yaml:"watch_list"`
	Report                    histo.VerdictSet `json:"reportVerdicts"            yaml:"report_verdicts"`
}

// DefaultLimits returns the limits used when nothing is configured.
func DefaultLimits() Limits {
	return Limits{
		ClassLimit:                DefaultClassLimit,
		ByteFloor:                 DefaultByteFloor,
		MaxGrowthPercentage:       5.0,
		MinGrowthPointsPercentage: trend.DefaultMinGrowthPointsPercentage,
		SafeList:                  []string{},
		WatchList:                 []string{},
		Report:                    histo.NewVerdictSet(histo.GrowCritical, histo.GrowMinor),
	}
}

// ClassDetails is one listed class. The series have one entry per snapshot;
// nil entries mark snapshots without a value.
type ClassDetails struct {
	Verdict       histo.Verdict   `json:"analysis"      yaml:"analysis"`
	Class         histo.ClassInfo `json:"classInfo"     yaml:"class_info"`
	Bytes         []*int64        `json:"bytes"         yaml:"bytes"`
	BytesDiff     []*int64        `json:"bytesDiff"     yaml:"bytes_diff"`
	Instances     []*int64        `json:"instances"     yaml:"instances"`
	InstancesDiff []*int64        `json:"instancesDiff" yaml:"instances_diff"`
}

// LastBytes returns the final byte size, or -1 when it is missing.
func (d ClassDetails) LastBytes() int64 {
	if len(d.Bytes) == 0 || d.Bytes[len(d.Bytes)-1] == nil {
		return -1
	}

	return *d.Bytes[len(d.Bytes)-1]
}

// Meta describes where a report came from. Build leaves it empty.
type Meta struct {
	Identifier     string    `json:"identifier"     yaml:"identifier"`
	ReportTime     time.Time `json:"reportTime"     yaml:"report_time"`
	HistogramFiles []string  `json:"histogramFiles" yaml:"histogram_files"`
	SafeListFile   string    `json:"safeListFile,omitempty"  yaml:"safe_list_file,omitempty"`
	WatchListFile  string    `json:"watchListFile,omitempty" yaml:"watch_list_file,omitempty"`
	// TimeZone is the zone dump wall clocks were read in: an IANA name,
	// "Local", "UTC" or a fixed offset such as "+02:00".
	TimeZone string `json:"timeZone,omitempty" yaml:"time_zone,omitempty"`
}

// Location resolves TimeZone. Empty or unknown zones resolve to UTC.
func (m Meta) Location() *time.Location {
	if m.TimeZone == "" {
		return time.UTC
	}

	if loc, err := time.LoadLocation(m.TimeZone); err == nil {
		return loc
	}

	offset, err := time.Parse("-07:00", m.TimeZone)
	if err != nil {
		return time.UTC
	}

	_, secs := offset.Zone()

	return time.FixedZone(m.TimeZone, secs)
}

// Report is the assembled analysis result consumed by renderers.
type Report struct {
	Meta       Meta                  `json:"meta"       yaml:"meta"`
	Limits     Limits                `json:"limits"     yaml:"limits"`
	Verdict    histo.Verdict         `json:"leakResult" yaml:"leak_result"`
	Histogram  map[histo.Verdict]int `json:"summary"    yaml:"summary"`
	Details    []ClassDetails        `json:"details"    yaml:"details"`
	Timestamps []int64               `json:"timestamps" yaml:"timestamps"`
}

// DetailsFor returns the listed classes with verdict v, in report order.
func (r *Report) DetailsFor(v histo.Verdict) []ClassDetails {
	var out []ClassDetails

	for _, d := range r.Details {
		if d.Verdict == v {
			out = append(out, d)
		}
	}

	return out
}

// overallPriority is the worst-first order the overall verdict is picked in.
var overallPriority = []histo.Verdict{
	histo.GrowCritical,
	histo.GrowMinor,
	histo.GrowSafe,
	histo.Shrink,
	histo.Stable,
}

// Build assembles the report for table under limits.
func Build(table *trend.Table, limits Limits) *Report {
	ordered := table.Ordered()
	histogram := countVerdicts(ordered, limits.ByteFloor)

	var watched, others []trend.ClassTrend

	for _, ct := range ordered {
		if !limits.Report.Has(ct.Verdict) {
			continue
		}

		if ct.Class.OnWatchList {
			watched = append(watched, ct)

			continue
		}

		if ct.LastBytes() > limits.ByteFloor {
			others = append(others, ct)
		}
	}

	if limits.ClassLimit >= 0 && len(others) > limits.ClassLimit {
		others = others[:limits.ClassLimit]
	}

	listed := slices.Concat(others, watched)
	slices.SortFunc(listed, trend.CompareBySize)

	details := make([]ClassDetails, len(listed))
	for i, ct := range listed {
		details[i] = newClassDetails(ct)
	}

	return &Report{
		Limits:     limits,
		Verdict:    overallVerdict(histogram),
		Histogram:  histogram,
		Details:    details,
		Timestamps: slices.Clone(table.Timestamps),
	}
}

func countVerdicts(trends []trend.ClassTrend, byteFloor int64) map[histo.Verdict]int {
	histogram := make(map[histo.Verdict]int, len(histo.Verdicts()))
	for _, v := range histo.Verdicts() {
		histogram[v] = 0
	}

	for _, ct := range trends {
		if ct.LastBytes() > byteFloor {
			histogram[ct.Verdict]++
		}
	}

	return histogram
}

func overallVerdict(histogram map[histo.Verdict]int) histo.Verdict {
	for _, v := range overallPriority {
		if histogram[v] > 0 {
			return v
		}
	}

	return histo.Unknown
}

func newClassDetails(ct trend.ClassTrend) ClassDetails {
	bytes := histo.Values(ct.Series, histo.ByteSize)
	instances := histo.Values(ct.Series, histo.InstanceCount)

	return ClassDetails{
		Verdict:       ct.Verdict,
		Class:         ct.Class,
		Bytes:         bytes,
		BytesDiff:     Diff(bytes),
		Instances:     instances,
		InstancesDiff: Diff(instances),
	}
}

// Diff returns the step differences of values. The first entry is 0 and an
// entry is nil when either side of its pair is nil.
func Diff(values []*int64) []*int64 {
	diffs := make([]*int64, len(values))

	for i := range values {
		if i == 0 {
			diffs[i] = new(int64)

			continue
		}

		if values[i] == nil || values[i-1] == nil {
			continue
		}

		d := *values[i] - *values[i-1]
		diffs[i] = &d
	}

	return diffs
}
