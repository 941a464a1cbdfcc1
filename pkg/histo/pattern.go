package histo

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

const wildcard = "*"

// PatternSet tests class names against literal names and wildcard patterns.
// A pattern containing '*' is a wildcard: '.' matches a literal dot and '*'
// matches any run of characters. Wildcards match anywhere in the name.
// The zero value and a nil *PatternSet match nothing.
type PatternSet struct {
	literals  map[string]struct{}
	wildcards []*regexp.Regexp
	patterns  []string
}

// NewPatternSet compiles patterns. Blank entries are ignored and surrounding
// whitespace is trimmed.
func NewPatternSet(patterns []string) (*PatternSet, error) {
	set := &PatternSet{literals: make(map[string]struct{})}

	for _, raw := range patterns {
		pattern := strings.TrimSpace(raw)
		if pattern == "" {
			continue
		}

		if slices.Contains(set.patterns, pattern) {
			continue
		}

		set.patterns = append(set.patterns, pattern)

		if !strings.Contains(pattern, wildcard) {
			set.literals[pattern] = struct{}{}

			continue
		}

		re, err := compileWildcard(pattern)
		if err != nil {
			return nil, err
		}

		set.wildcards = append(set.wildcards, re)
	}

	slices.Sort(set.patterns)

	return set, nil
}

// MustPatternSet is like NewPatternSet but panics on an invalid pattern.
// Intended for package-level sets and tests.
func MustPatternSet(patterns ...string) *PatternSet {
	set, err := NewPatternSet(patterns)
	if err != nil {
		panic(err)
	}

	return set
}

func compileWildcard(pattern string) (*regexp.Regexp, error) {
	parts := strings.Split(pattern, wildcard)
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}

	re, err := regexp.Compile(strings.Join(parts, ".*"))
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}

	return re, nil
}

// Matches reports whether name matches any pattern in the set.
func (s *PatternSet) Matches(name string) bool {
	if s == nil {
		return false
	}

	if _, ok := s.literals[name]; ok {
		return true
	}

	for _, re := range s.wildcards {
		if re.MatchString(name) {
			return true
		}
	}

	return false
}

// Patterns returns the source patterns, sorted.
func (s *PatternSet) Patterns() []string {
	if s == nil {
		return nil
	}

	return slices.Clone(s.patterns)
}

// Len returns the number of distinct patterns.
func (s *PatternSet) Len() int {
	if s == nil {
		return 0
	}

	return len(s.patterns)
}
