package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/ddsguard/pkg/cli"
	"mercator-hq/ddsguard/pkg/config"
	"mercator-hq/ddsguard/pkg/telemetry/logging"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "ddsguard",
		Short: "ddsguard - compliance evaluation for due-diligence statements and supply chains",
		Long: `ddsguard checks due-diligence statements and supply-chain declarations
against configurable risk indicators.

Every evaluation produces a decision with a completeness or risk score,
categorised issues and prioritised recommendations. Decisions can be kept
in an append-only evidence store for audit.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "config file path (defaults plus DDSGUARD_* environment variables when empty)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	cmd.AddCommand(
		newEvaluateCmd(flags),
		newIndicatorsCmd(flags),
		newEvidenceCmd(flags),
		newServeCmd(flags),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig loads the configuration named by --config, applies flag
// overrides and publishes it as the process configuration.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	var overrides []config.Override
	if f.logLevel != "" {
		overrides = append(overrides, func(c *config.Config) {
			c.Telemetry.Logging.Level = f.logLevel
		})
	}
	cfg, err := config.Initialize(f.configFile, overrides...)
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg, nil
}

// newLogger builds the logger described by cfg, writing to the command's
// error stream, and makes it the default logger.
func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.New(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
		Writer:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)
	return logger, nil
}

// setup loads configuration and logging for a command.
func (f *globalFlags) setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
