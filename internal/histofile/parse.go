package histofile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	minFields = 4
	// maxFields allows the module column of Java 9+ dumps, e.g. "(java.base@11.0.6)".
	maxFields = 5

	rankSuffix = ":"
)

// ErrInvalidLine is matched by every *ParseError.
var ErrInvalidLine = errors.New("invalid histogram line")

// ParseError describes a histogram line that could not be read.
type ParseError struct {
	File   string
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	location := e.File
	if location == "" {
		location = "input"
	}

	return fmt.Sprintf("%s: %s:%d: %s: %q", ErrInvalidLine, location, e.Line, e.Reason, e.Text)
}

func (e *ParseError) Unwrap() error {
	return ErrInvalidLine
}

// Line is one parsed histogram row.
type Line struct {
	Rank      int64
	Instances int64
	Bytes     int64
	Name      string
}

// ParseLine parses a single row such as
//
//	4:         88508        2124192  java.lang.String (java.base@11.0.6)
//
// The module column is ignored. The returned error is a *ParseError without
// file and line information.
func ParseLine(text string) (Line, error) {
	fields := strings.Fields(text)
	if len(fields) < minFields || len(fields) > maxFields {
		return Line{}, &ParseError{
			Text:   text,
			Reason: fmt.Sprintf("%d fields, %d or %d expected", len(fields), minFields, maxFields),
		}
	}

	rank, err := parseCount(strings.TrimSuffix(fields[0], rankSuffix), "rank")
	if err != nil {
		return Line{}, &ParseError{Text: text, Reason: err.Error()}
	}

	instances, err := parseCount(fields[1], "instances")
	if err != nil {
		return Line{}, &ParseError{Text: text, Reason: err.Error()}
	}

	bytes, err := parseCount(fields[2], "bytes")
	if err != nil {
		return Line{}, &ParseError{Text: text, Reason: err.Error()}
	}

	return Line{Rank: rank, Instances: instances, Bytes: bytes, Name: fields[3]}, nil
}

func parseCount(field, what string) (int64, error) {
	n, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a number", what, field)
	}

	if n < 0 {
		return 0, fmt.Errorf("%s %q is negative", what, field)
	}

	return n, nil
}

// Parse reads every row of a histogram dump. Lines without a ':' (headers,
// the totals line, blank lines) are skipped. name is used in errors.
func Parse(r io.Reader, name string) ([]Line, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		lines  []Line
		lineNo int
	)

	for scanner.Scan() {
		lineNo++

		text := strings.TrimSpace(scanner.Text())
		if !strings.Contains(text, rankSuffix) {
			continue
		}

		line, err := ParseLine(text)
		if err != nil {
			var parseErr *ParseError
			if errors.As(err, &parseErr) {
				parseErr.File = name
				parseErr.Line = lineNo
			}

			return nil, err
		}

		lines = append(lines, line)
	}

	scanErr := scanner.Err()
	if scanErr != nil {
		return nil, fmt.Errorf("scan %s: %w", name, scanErr)
	}

	return lines, nil
}
