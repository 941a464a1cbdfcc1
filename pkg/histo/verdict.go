package histo

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Verdict is the outcome of classifying one class's trend.
type Verdict uint8

// Verdict values. Unknown is the zero value.
const (
	Unknown Verdict = iota
	GrowCritical
	GrowMinor
	GrowSafe
	GrowHickUps
	ShrinkAndGrow
	Stable
	Shrink
	Single

	verdictCount = iota
)

// ErrUnknownVerdict is returned when a verdict name cannot be parsed.
var ErrUnknownVerdict = errors.New("unknown verdict")

var verdictNames = [verdictCount]string{
	Unknown:       "UNKNOWN",
	GrowCritical:  "GROW_CRITICAL",
	GrowMinor:     "GROW_MINOR",
	GrowSafe:      "GROW_SAFE",
	GrowHickUps:   "GROW_HICK_UPS",
	ShrinkAndGrow: "SHRINK_AND_GROW",
	Stable:        "STABLE",
	Shrink:        "SHRINK",
	Single:        "SINGLE",
}

var verdictDescriptions = [verdictCount]string{
	Unknown:       "no matching analysis result",
	GrowCritical:  "critical growth detected (above 'maximum allowed growth percentage')",
	GrowMinor:     "minor growth detected (below 'maximum allowed growth percentage')",
	GrowSafe:      "growth detected in 'safe list' of known growing classes",
	GrowHickUps:   "growth with hick-ups (less than 'minimum growth points percentage')",
	ShrinkAndGrow: "both shrink and growth detected",
	Stable:        "all histograms show same number of objects",
	Shrink:        "opposite of growth: only shrinks detected",
	Single:        "present in one histogram only (probably a temporary class such as a lambda)",
}

// Verdicts returns every verdict, most alarming first.
func Verdicts() []Verdict {
	return []Verdict{
		GrowCritical, GrowMinor, GrowSafe, GrowHickUps,
		ShrinkAndGrow, Stable, Shrink, Single, Unknown,
	}
}

// String returns the upper snake case name, e.g. "GROW_CRITICAL".
func (v Verdict) String() string {
	if int(v) >= verdictCount {
		return fmt.Sprintf("Verdict(%d)", v)
	}

	return verdictNames[v]
}

// Description returns a human readable explanation of the verdict.
func (v Verdict) Description() string {
	if int(v) >= verdictCount {
		return ""
	}

	return verdictDescriptions[v]
}

// IsGrowth reports whether v belongs to the GROW_* family.
func (v Verdict) IsGrowth() bool {
	switch v {
	case GrowCritical, GrowMinor, GrowSafe, GrowHickUps:
		return true
	default:
		return false
	}
}

// ParseVerdict parses a verdict name. Matching ignores case and surrounding
// whitespace.
func ParseVerdict(name string) (Verdict, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))

	for i, n := range verdictNames {
		if n == normalized {
			return Verdict(i), nil
		}
	}

	return Unknown, fmt.Errorf("%w: %q", ErrUnknownVerdict, name)
}

// MarshalText implements encoding.TextMarshaler.
func (v Verdict) MarshalText() ([]byte, error) {
	if int(v) >= verdictCount {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVerdict, v)
	}

	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Verdict) UnmarshalText(text []byte) error {
	parsed, err := ParseVerdict(string(text))
	if err != nil {
		return err
	}

	*v = parsed

	return nil
}

// VerdictSet is a set of verdicts, used to select which verdicts a report lists.
type VerdictSet uint16

// NewVerdictSet returns a set holding verdicts.
func NewVerdictSet(verdicts ...Verdict) VerdictSet {
	var set VerdictSet

	for _, v := range verdicts {
		set = set.With(v)
	}

	return set
}

// ParseVerdictSet parses a comma separated list of verdict names such as
// "grow_critical,grow_minor". Names that are not verdicts are returned in
// unknown instead of failing the whole list.
func ParseVerdictSet(list string) (set VerdictSet, unknown []string) {
	for name := range strings.SplitSeq(list, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}

		v, err := ParseVerdict(name)
		if err != nil {
			unknown = append(unknown, strings.TrimSpace(name))

			continue
		}

		set = set.With(v)
	}

	return set, unknown
}

// With returns a copy of s that also holds v.
func (s VerdictSet) With(v Verdict) VerdictSet {
	return s | 1<<v
}

// Has reports whether v is in the set.
func (s VerdictSet) Has(v Verdict) bool {
	return s&(1<<v) != 0
}

// Slice returns the members in Verdicts order.
func (s VerdictSet) Slice() []Verdict {
	var members []Verdict

	for _, v := range Verdicts() {
		if s.Has(v) {
			members = append(members, v)
		}
	}

	return members
}

// String returns the members as a comma separated list.
func (s VerdictSet) String() string {
	members := s.Slice()
	names := make([]string, len(members))

	for i, v := range members {
		names[i] = v.String()
	}

	return strings.Join(names, ",")
}

// MarshalJSON encodes the set as a list of verdict names.
func (s VerdictSet) MarshalJSON() ([]byte, error) {
	members := s.Slice()
	if members == nil {
		members = []Verdict{}
	}

	data, err := json.Marshal(members)
	if err != nil {
		return nil, fmt.Errorf("marshal verdict set: %w", err)
	}

	return data, nil
}

// UnmarshalJSON decodes a list of verdict names.
func (s *VerdictSet) UnmarshalJSON(data []byte) error {
	var members []Verdict

	err := json.Unmarshal(data, &members)
	if err != nil {
		return fmt.Errorf("unmarshal verdict set: %w", err)
	}

	*s = NewVerdictSet(members...)

	return nil
}

// MarshalYAML encodes the set as a list of verdict names.
func (s VerdictSet) MarshalYAML() (any, error) {
	members := s.Slice()
	names := make([]string, len(members))

	for i, v := range members {
		names[i] = v.String()
	}

	return names, nil
}

// UnmarshalYAML decodes a list of verdict names.
func (s *VerdictSet) UnmarshalYAML(unmarshal func(any) error) error {
	var members []Verdict

	err := unmarshal(&members)
	if err != nil {
		return fmt.Errorf("unmarshal verdict set: %w", err)
	}

	*s = NewVerdictSet(members...)

	return nil
}
