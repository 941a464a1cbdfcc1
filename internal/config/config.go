// Package config loads histotrend settings from defaults, an optional YAML
// file and HISTOTREND_* environment variables.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/histotrend/pkg/histo"
	"github.com/Sumatoshi-tech/histotrend/pkg/report"
	"github.com/Sumatoshi-tech/histotrend/pkg/safeconv"
	"github.com/Sumatoshi-tech/histotrend/pkg/trend"
)

// Config is the top-level configuration. Field tags use mapstructure for
// viper unmarshalling.
type Config struct {
	Input     InputConfig     `mapstructure:"input"`
	Report    ReportConfig    `mapstructure:"report"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// InputConfig locates the histogram dumps.
type InputConfig struct {
	Dir       string `mapstructure:"dir"`
	Extension string `mapstructure:"extension"`
}

// ReportConfig controls report contents and output.
type ReportConfig struct {
	Dir        string   `mapstructure:"dir"`
	Identifier string   `mapstructure:"identifier"`
	Formats    []string `mapstructure:"formats"`
	ClassLimit int      `mapstructure:"class_limit"`
	// ByteLimit is a size such as "2048", "2KiB" or "1MB".
	ByteLimit string `mapstructure:"byte_limit"`
	// Settings lists the verdicts to report, comma separated.
	Settings string `mapstructure:"settings"`
}

// AnalysisConfig holds classification thresholds and class lists.
type AnalysisConfig struct {
	MaxGrowthPercentage       float64  `mapstructure:"max_growth_percentage"`
	MinGrowthPointsPercentage float64  `mapstructure:"min_growth_points_percentage"`
	SafeList                  []string `mapstructure:"safe_list"`
	WatchList                 []string `mapstructure:"watch_list"`
	SafeListFile              string   `mapstructure:"safe_list_file"`
	WatchListFile             string   `mapstructure:"watch_list_file"`
	// TimeZone is an IANA name, "Local", "UTC" or a fixed offset like "+02:00".
	TimeZone      string `mapstructure:"time_zone"`
	Workers       int    `mapstructure:"workers"`
	DetectSingles bool   `mapstructure:"detect_singles"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig controls OpenTelemetry export and the Prometheus textfile.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	OTLPHeaders  string `mapstructure:"otlp_headers"`
	MetricsFile  string `mapstructure:"metrics_file"`
}

// Report output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatHTML = "html"
)

// SupportedFormats lists every report format.
var SupportedFormats = []string{FormatText, FormatJSON, FormatYAML, FormatHTML}

// timestampPlaceholder in the identifier is replaced by the report time.
const (
	timestampPlaceholder = "#ts#"
	timestampLayout      = "2006-01-02T15:04"
)

const percentMax = 100.0

// Sentinel errors for configuration validation.
var (
	// ErrEmptyExtension indicates input.extension is empty.
	ErrEmptyExtension = errors.New("input.extension must not be empty")
	// ErrInvalidClassLimit indicates a negative class limit.
	ErrInvalidClassLimit = errors.New("report.class_limit must be non-negative")
	// ErrInvalidByteLimit indicates an unparsable byte limit.
	ErrInvalidByteLimit = errors.New("report.byte_limit must be a byte size")
	// ErrUnknownFormat indicates an unsupported report format.
	ErrUnknownFormat = errors.New("report.formats contains an unknown format")
	// ErrInvalidMaxGrowth indicates a negative growth threshold.
	ErrInvalidMaxGrowth = errors.New("analysis.max_growth_percentage must be non-negative")
	// ErrInvalidMinGrowthPoints indicates a growth points threshold outside 0..100.
	ErrInvalidMinGrowthPoints = errors.New("analysis.min_growth_points_percentage must be between 0 and 100")
	// ErrInvalidWorkers indicates a negative worker count.
	ErrInvalidWorkers = errors.New("analysis.workers must be non-negative")
	// ErrInvalidTimeZone indicates an unknown time zone.
	ErrInvalidTimeZone = errors.New("analysis.time_zone is not a known zone or offset")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Input.Extension) == "" {
		return ErrEmptyExtension
	}

	reportErr := c.validateReport()
	if reportErr != nil {
		return reportErr
	}

	return c.validateAnalysis()
}

func (c *Config) validateReport() error {
	if c.Report.ClassLimit < 0 {
		return ErrInvalidClassLimit
	}

	if _, err := c.ByteFloor(); err != nil {
		return err
	}

	for _, f := range c.Report.Formats {
		if !slices.Contains(SupportedFormats, strings.ToLower(f)) {
			return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
		}
	}

	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.MaxGrowthPercentage < 0 {
		return ErrInvalidMaxGrowth
	}

	if c.Analysis.MinGrowthPointsPercentage < 0 || c.Analysis.MinGrowthPointsPercentage > percentMax {
		return ErrInvalidMinGrowthPoints
	}

	if c.Analysis.Workers < 0 {
		return ErrInvalidWorkers
	}

	_, err := c.Location()

	return err
}

// ByteFloor parses report.byte_limit. SI suffixes are powers of 1000
// ("2KB" = 2000), IEC suffixes powers of 1024 ("2KiB" = 2048).
func (c *Config) ByteFloor() (int64, error) {
	raw := strings.TrimSpace(c.Report.ByteLimit)
	if raw == "" {
		return 0, nil
	}

	n, err := humanize.ParseBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidByteLimit, raw)
	}

	floor, err := safeconv.Uint64ToInt64(n)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidByteLimit, err)
	}

	return floor, nil
}

// Location resolves analysis.time_zone.
func (c *Config) Location() (*time.Location, error) {
	zone := strings.TrimSpace(c.Analysis.TimeZone)

	switch {
	case zone == "" || strings.EqualFold(zone, "local"):
		return time.Local, nil
	case strings.HasPrefix(zone, "+") || strings.HasPrefix(zone, "-"):
		t, err := time.Parse("-07:00", zone)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTimeZone, zone)
		}

		_, offset := t.Zone()

		return time.FixedZone(zone, offset), nil
	default:
		loc, err := time.LoadLocation(zone)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTimeZone, zone)
		}

		return loc, nil
	}
}

// ReportVerdicts parses report.settings. Unknown names are returned
// separately so callers can warn about them.
func (c *Config) ReportVerdicts() (histo.VerdictSet, []string) {
	return histo.ParseVerdictSet(c.Report.Settings)
}

// Identifier returns report.identifier with "#ts#" replaced by now.
func (c *Config) Identifier(now time.Time) string {
	return strings.ReplaceAll(c.Report.Identifier, timestampPlaceholder, now.Format(timestampLayout))
}

// Limits builds report limits from the configuration and resolved lists.
func (c *Config) Limits(safe, watch *histo.PatternSet, verdicts histo.VerdictSet) (report.Limits, error) {
	floor, err := c.ByteFloor()
	if err != nil {
		return report.Limits{}, err
	}

	safeList := safe.Patterns()
	if safeList == nil {
		safeList = []string{}
	}

	watchList := watch.Patterns()
	if watchList == nil {
		watchList = []string{}
	}

	return report.Limits{
		ClassLimit:                c.Report.ClassLimit,
		ByteFloor:                 floor,
		MaxGrowthPercentage:       c.Analysis.MaxGrowthPercentage,
		MinGrowthPointsPercentage: c.Analysis.MinGrowthPointsPercentage,
		SafeList:                  safeList,
		WatchList:                 watchList,
		Report:                    verdicts,
	}, nil
}

// AggregateConfig builds the trend aggregation settings.
func (c *Config) AggregateConfig() (trend.AggregateConfig, error) {
	loc, err := c.Location()
	if err != nil {
		return trend.AggregateConfig{}, err
	}

	return trend.AggregateConfig{
		MaxGrowthPercentage:       c.Analysis.MaxGrowthPercentage,
		MinGrowthPointsPercentage: c.Analysis.MinGrowthPointsPercentage,
		Location:                  loc,
		Workers:                   c.Analysis.Workers,
		DetectSingles:             c.Analysis.DetectSingles,
	}, nil
}
