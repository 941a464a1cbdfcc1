package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/histotrend/pkg/histo"
)

// configName is the config file name without extension.
const configName = ".histotrend"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix.
const envPrefix = "HISTOTREND"

// envKeySeparator replaces '.' in nested keys for environment variables,
// e.g. HISTOTREND_REPORT_CLASS_LIMIT.
const envKeySeparator = "_"

const commentPrefix = "#"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty it is the config file. Otherwise .histotrend.yaml
// is searched in CWD and $HOME. A missing file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("input.dir", DefaultDir)
	viperCfg.SetDefault("input.extension", DefaultExtension)

	viperCfg.SetDefault("report.dir", DefaultReportDir)
	viperCfg.SetDefault("report.identifier", DefaultIdentifier)
	viperCfg.SetDefault("report.formats", DefaultFormats)
	viperCfg.SetDefault("report.class_limit", DefaultClassLimit)
	viperCfg.SetDefault("report.byte_limit", DefaultByteLimit)
	viperCfg.SetDefault("report.settings", DefaultSettings)

	viperCfg.SetDefault("analysis.max_growth_percentage", DefaultMaxGrowthPercentage)
	viperCfg.SetDefault("analysis.min_growth_points_percentage", DefaultMinGrowthPointsPercentage)
	viperCfg.SetDefault("analysis.safe_list", []string{})
	viperCfg.SetDefault("analysis.watch_list", []string{})
	viperCfg.SetDefault("analysis.safe_list_file", "")
	viperCfg.SetDefault("analysis.watch_list_file", "")
	viperCfg.SetDefault("analysis.time_zone", "")
	viperCfg.SetDefault("analysis.workers", 0)
	viperCfg.SetDefault("analysis.detect_singles", DefaultDetectSingles)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", false)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.metrics_file", "")
}

// LoadClassList reads one class name or pattern per line. Blank lines and
// lines starting with '#' are skipped.
func LoadClassList(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open class list: %w", err)
	}
	defer file.Close()

	var patterns []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}

		patterns = append(patterns, line)
	}

	scanErr := scanner.Err()
	if scanErr != nil {
		return nil, fmt.Errorf("read class list %s: %w", path, scanErr)
	}

	return patterns, nil
}

// PatternSets combines the inline lists with the list files into the safe
// and watch pattern sets.
func (c *Config) PatternSets() (safe, watch *histo.PatternSet, err error) {
	safe, err = patternSet(c.Analysis.SafeList, c.Analysis.SafeListFile)
	if err != nil {
		return nil, nil, fmt.Errorf("safe list: %w", err)
	}

	watch, err = patternSet(c.Analysis.WatchList, c.Analysis.WatchListFile)
	if err != nil {
		return nil, nil, fmt.Errorf("watch list: %w", err)
	}

	return safe, watch, nil
}

func patternSet(inline []string, file string) (*histo.PatternSet, error) {
	patterns := splitList(inline)

	if file != "" {
		fromFile, err := LoadClassList(file)
		if err != nil {
			return nil, err
		}

		patterns = append(patterns, fromFile...)
	}

	return histo.NewPatternSet(patterns)
}

// splitList also splits comma separated entries, since env vars and flags
// deliver lists as "a,b".
func splitList(values []string) []string {
	var out []string

	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}

	return out
}
