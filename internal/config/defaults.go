package config

import (
	"slices"

	"github.com/Sumatoshi-tech/histotrend/pkg/report"
)

// Default values, matching the long-standing command line defaults.
const (
	DefaultDir                       = "."
	DefaultExtension                 = "histo"
	DefaultIdentifier                = "anonymous-" + timestampPlaceholder
	DefaultReportDir                 = "."
	DefaultClassLimit                = report.DefaultClassLimit
	DefaultByteLimit                 = "2048"
	DefaultSettings                  = "grow_critical,grow_minor"
	DefaultMaxGrowthPercentage       = 5.0
	DefaultMinGrowthPointsPercentage = 50.0
	DefaultDetectSingles             = true
	DefaultLogLevel                  = "info"
)

// DefaultFormats are the report formats written when none are configured.
var DefaultFormats = []string{FormatText, FormatJSON, FormatHTML}

// Default returns the configuration LoadConfig yields without a file or
// environment overrides.
func Default() *Config {
	return &Config{
		Input: InputConfig{Dir: DefaultDir, Extension: DefaultExtension},
		Report: ReportConfig{
			Dir:        DefaultReportDir,
			Identifier: DefaultIdentifier,
			Formats:    slices.Clone(DefaultFormats),
			ClassLimit: DefaultClassLimit,
			ByteLimit:  DefaultByteLimit,
			Settings:   DefaultSettings,
		},
		Analysis: AnalysisConfig{
			MaxGrowthPercentage:       DefaultMaxGrowthPercentage,
			MinGrowthPointsPercentage: DefaultMinGrowthPointsPercentage,
			DetectSingles:             DefaultDetectSingles,
		},
		Logging: LoggingConfig{Level: DefaultLogLevel},
	}
}
