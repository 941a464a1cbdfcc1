// Package commands implements the histotrend subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/Sumatoshi-tech/histotrend/internal/config"
	"github.com/Sumatoshi-tech/histotrend/internal/observability"
	"github.com/Sumatoshi-tech/histotrend/pkg/version"
)

// Exit codes.
const (
	// ExitCodeFailOn is returned when the overall verdict is in --fail-on.
	ExitCodeFailOn = 2
	// ExitCodeInvalid is returned when validation fails.
	ExitCodeInvalid = 3
)

// ExitError carries a process exit code for main.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// observabilityInit matches observability.Init; tests substitute it.
type observabilityInit func(cfg observability.Config, readers ...sdkmetric.Reader) (observability.Providers, error)

// flagBool reads an inherited or local bool flag, false when it is not defined.
func flagBool(cmd *cobra.Command, name string) bool {
	flag := cmd.Flags().Lookup(name)
	if flag == nil {
		return false
	}

	return flag.Value.String() == "true"
}

// observabilityConfig maps the loaded configuration and the root verbosity
// flags onto the observability settings.
func observabilityConfig(cmd *cobra.Command, cfg *config.Config, mode observability.AppMode) (observability.Config, error) {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.LogJSON = cfg.Logging.JSON

	level, err := observability.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return observability.Config{}, err
	}

	obsCfg.LogLevel = level

	switch {
	case flagBool(cmd, "verbose"):
		obsCfg.LogLevel = slog.LevelDebug
	case flagBool(cmd, "quiet"):
		obsCfg.LogLevel = slog.LevelError
	}

	return obsCfg, nil
}

// shutdown flushes telemetry and logs, but does not return, a failure.
func shutdown(providers observability.Providers) {
	if providers.Shutdown == nil {
		return
	}

	err := providers.Shutdown(context.Background())
	if err != nil && providers.Logger != nil {
		providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}

func loggerOf(providers observability.Providers) *slog.Logger {
	if providers.Logger != nil {
		return providers.Logger
	}

	return slog.Default()
}

func wrapConfigErr(err error) error {
	return fmt.Errorf("configuration: %w", err)
}
