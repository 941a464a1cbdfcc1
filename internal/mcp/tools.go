package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/histotrend/internal/analysis"
	"github.com/Sumatoshi-tech/histotrend/internal/config"
	"github.com/Sumatoshi-tech/histotrend/pkg/histo"
	"github.com/Sumatoshi-tech/histotrend/pkg/trend"
)

// Tool name constants.
const (
	ToolNameAnalyze  = "histotrend_analyze"
	ToolNameClassify = "histotrend_classify"
)

// MaxSeriesLength bounds the series accepted by histotrend_classify.
const MaxSeriesLength = 10_000

// Sentinel errors for tool input validation.
var (
	// ErrEmptyDir indicates the dir parameter is empty.
	ErrEmptyDir = errors.New("dir parameter is required and must not be empty")
	// ErrDirNotAbsolute indicates the dir is not an absolute path.
	ErrDirNotAbsolute = errors.New("dir must be an absolute path")
	// ErrSeriesTooShort indicates fewer than two values were given.
	ErrSeriesTooShort = errors.New("values must hold at least two entries")
	// ErrSeriesTooLong indicates the series exceeds MaxSeriesLength.
	ErrSeriesTooLong = errors.New("values exceeds maximum length")
	// ErrNegativeValue indicates a negative size in the series.
	ErrNegativeValue = errors.New("values must not be negative")
)

// Input types (auto-generate JSON schemas via struct tags).

// AnalyzeInput is the input schema for the histotrend_analyze tool.
type AnalyzeInput struct {
	Dir                       string   `json:"dir"                                    jsonschema:"absolute path of the directory holding the histogram dumps"`
	Extension                 string   `json:"extension,omitempty"                    jsonschema:"dump file extension without dot (default: histo)"`
	Identifier                string   `json:"identifier,omitempty"                   jsonschema:"report identifier; #ts# is replaced by the report time"`
	Settings                  string   `json:"settings,omitempty"                     jsonschema:"comma separated verdicts to list (default: grow_critical,grow_minor)"`
	ClassLimit                *int     `json:"class_limit,omitempty"                  jsonschema:"maximum number of listed classes that are not on the watch list"`
	ByteLimit                 string   `json:"byte_limit,omitempty"                   jsonschema:"only list classes above this size in the last dump (e.g. 2048 or 2KiB)"`
	MaxGrowthPercentage       *float64 `json:"max_growth_percentage,omitempty"        jsonschema:"largest step growth percentage still counted as minor"`
	MinGrowthPointsPercentage *float64 `json:"min_growth_points_percentage,omitempty" jsonschema:"share of growing steps needed for a growth verdict"`
	SafeList                  []string `json:"safe_list,omitempty"                    jsonschema:"class names or * patterns known to grow safely"`
	WatchList                 []string `json:"watch_list,omitempty"                   jsonschema:"class names or * patterns always listed"`
	TimeZone                  string   `json:"time_zone,omitempty"                    jsonschema:"zone of the dump times (IANA name, Local, UTC or +02:00)"`
}

// ClassifyInput is the input schema for the histotrend_classify tool.
type ClassifyInput struct {
	Values                    []*int64 `json:"values"                                 jsonschema:"one size per dump; null where the class was absent"`
	SafeToGrow                bool     `json:"safe_to_grow,omitempty"                 jsonschema:"treat growth as safe, as for safe-listed classes"`
	MaxGrowthPercentage       *float64 `json:"max_growth_percentage,omitempty"        jsonschema:"largest step growth percentage still counted as minor (default: 10)"`
	MinGrowthPointsPercentage *float64 `json:"min_growth_points_percentage,omitempty" jsonschema:"share of growing steps needed for a growth verdict (default: 50)"`
	DetectSingle              bool     `json:"detect_single,omitempty"                jsonschema:"report SINGLE when exactly one value is present"`
}

// ClassifyResult is the histotrend_classify response.
type ClassifyResult struct {
	Verdict     histo.Verdict `json:"verdict"`
	Description string        `json:"description"`
	Tally       trend.Tally   `json:"tally"`
}

// Output type (used as structured output for generic AddTool).

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

// handleAnalyze processes histotrend_analyze tool calls.
func (s *Server) handleAnalyze(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input AnalyzeInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateAnalyzeInput(input)
	if err != nil {
		return errorResult(err)
	}

	cfg := *s.base
	applyAnalyzeInput(&cfg, input)

	err = cfg.Validate()
	if err != nil {
		return errorResult(err)
	}

	req, unknown, err := analysis.NewRequest(&cfg, time.Now())
	if err != nil {
		return errorResult(err)
	}

	if len(unknown) > 0 {
		s.logger.WarnContext(ctx, "ignoring unknown report settings", "settings", unknown)
	}

	rep, err := s.runner.Run(ctx, req)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(rep)
}

func validateAnalyzeInput(input AnalyzeInput) error {
	if strings.TrimSpace(input.Dir) == "" {
		return ErrEmptyDir
	}

	if !filepath.IsAbs(input.Dir) {
		return fmt.Errorf("%w: %s", ErrDirNotAbsolute, input.Dir)
	}

	return nil
}

// applyAnalyzeInput overrides cfg with the arguments that were given. The
// list slices are replaced, never appended to, so the base stays untouched.
func applyAnalyzeInput(cfg *config.Config, input AnalyzeInput) {
	cfg.Input.Dir = input.Dir

	if input.Extension != "" {
		cfg.Input.Extension = strings.TrimPrefix(input.Extension, ".")
	}

	if input.Identifier != "" {
		cfg.Report.Identifier = input.Identifier
	}

	if input.Settings != "" {
		cfg.Report.Settings = input.Settings
	}

	if input.ClassLimit != nil {
		cfg.Report.ClassLimit = *input.ClassLimit
	}

	if input.ByteLimit != "" {
		cfg.Report.ByteLimit = input.ByteLimit
	}

	if input.MaxGrowthPercentage != nil {
		cfg.Analysis.MaxGrowthPercentage = *input.MaxGrowthPercentage
	}

	if input.MinGrowthPointsPercentage != nil {
		cfg.Analysis.MinGrowthPointsPercentage = *input.MinGrowthPointsPercentage
	}

	if input.SafeList != nil {
		cfg.Analysis.SafeList = input.SafeList
	}

	if input.WatchList != nil {
		cfg.Analysis.WatchList = input.WatchList
	}

	if input.TimeZone != "" {
		cfg.Analysis.TimeZone = input.TimeZone
	}
}

// handleClassify processes histotrend_classify tool calls.
func handleClassify(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	input ClassifyInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	result, err := classify(input)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(result)
}

func classify(input ClassifyInput) (ClassifyResult, error) {
	switch {
	case len(input.Values) < 2:
		return ClassifyResult{}, ErrSeriesTooShort
	case len(input.Values) > MaxSeriesLength:
		return ClassifyResult{}, fmt.Errorf("%w: %d (max %d)", ErrSeriesTooLong, len(input.Values), MaxSeriesLength)
	}

	for i, v := range input.Values {
		if v != nil && *v < 0 {
			return ClassifyResult{}, fmt.Errorf("%w: index %d", ErrNegativeValue, i)
		}
	}

	opts := trend.DefaultClassifyOptions()
	opts.SafeToGrow = input.SafeToGrow

	if input.MaxGrowthPercentage != nil {
		opts.MaxGrowthPercentage = *input.MaxGrowthPercentage
	}

	if input.MinGrowthPointsPercentage != nil {
		opts.MinGrowthPointsPercentage = *input.MinGrowthPointsPercentage
	}

	series := histo.ByteSeries(histo.ClassInfo{Name: "series", OnSafeList: input.SafeToGrow}, input.Values)

	verdict, tally := trend.ClassifyDetailed(series, opts)
	if input.DetectSingle && trend.IsSingle(series) {
		verdict = histo.Single
	}

	return ClassifyResult{
		Verdict:     verdict,
		Description: verdict.Description(),
		Tally:       tally,
	}, nil
}
