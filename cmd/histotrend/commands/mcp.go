package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/histotrend/internal/config"
	"github.com/Sumatoshi-tech/histotrend/internal/mcp"
	"github.com/Sumatoshi-tech/histotrend/internal/observability"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	return newMCPCommandWithDeps(observability.Init)
}

func newMCPCommandWithDeps(initFn observabilityInit) *cobra.Command {
	var (
		debug      bool
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes histotrend as tools that AI agents can discover and
invoke:
  - histotrend_analyze: analyze a directory of histogram dumps into a report
  - histotrend_classify: classify one series of sizes

Settings from the config file and HISTOTREND_* variables are the defaults of
histotrend_analyze.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}

			obsCfg, err := observabilityConfig(cobraCmd, cfg, observability.ModeMCP)
			if err != nil {
				return err
			}

			// stdout carries the protocol; logs stay on stderr as JSON.
			obsCfg.LogJSON = true

			if debug {
				obsCfg.LogLevel = slog.LevelDebug
			}

			providers, err := initFn(obsCfg)
			if err != nil {
				return err
			}

			defer shutdown(providers)

			red, err := observability.NewREDMetrics(providers.Meter)
			if err != nil {
				return err
			}

			analysisMetrics, err := observability.NewAnalysisMetrics(providers.Meter)
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:   loggerOf(providers),
				Metrics:  red,
				Analysis: analysisMetrics,
				Tracer:   providers.Tracer,
				Config:   cfg,
			})

			return srv.Run(cobraCmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")
	cmd.Flags().StringVar(&configPath, "config", "", "Config file (default: .histotrend.yaml in CWD or $HOME)")

	return cmd
}
