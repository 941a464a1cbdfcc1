package render

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/report-schema.json
var reportSchema []byte

// ErrInvalidReport is returned when a JSON report does not match the schema.
var ErrInvalidReport = errors.New("report does not match schema")

// SchemaError lists the schema violations of a JSON report.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidReport, strings.Join(e.Violations, "; "))
}

func (e *SchemaError) Unwrap() error {
	return ErrInvalidReport
}

// ReportSchema returns the JSON schema of reports written with JSONCodec.
func ReportSchema() []byte {
	return reportSchema
}

// ValidateJSON checks a JSON report against the report schema. Violations
// are returned as a *SchemaError.
func ValidateJSON(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(reportSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}

	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		violations = append(violations, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}

	return &SchemaError{Violations: violations}
}
