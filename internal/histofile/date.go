package histofile

import (
	"regexp"
	"strings"
	"time"
)

// isoDate finds an ISO local date-time in a file name. The time separator may
// be ':', '_' or '-' since ':' is awkward in file names.
var isoDate = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})T(\d{2})[:_-](\d{2})[:_-](\d{2})(\.\d{1,9})?`)

const isoLayout = "2006-01-02T15:04:05.999999999"

// ExtractDate returns the wall clock time embedded in name, for example
// "heap-2020-06-17T22_25_38.960921.histo". The result is in UTC; it carries
// no zone information of its own.
func ExtractDate(name string) (time.Time, bool) {
	m := isoDate.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}

	normalized := m[1] + "T" + strings.Join([]string{m[2], m[3], m[4]}, ":") + m[5]

	t, err := time.Parse(isoLayout, normalized)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}
