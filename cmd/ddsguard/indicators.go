package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mercator-hq/ddsguard/pkg/cli"
	"mercator-hq/ddsguard/pkg/indicators"
)

func newIndicatorsCmd(global *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indicators",
		Short: "Work with risk indicator files",
		Long: `Validate risk indicator files and print the built-in defaults.

Risk indicators are the reference data evaluations run against: required
fields, high-risk countries and commodities, transparency indicators,
mitigation types, category weights, risk bands and thresholds.`,
	}

	validateCmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a risk indicator file",
		Long: `Validate a risk indicator file and print its version.

Every validation error is listed. The exit status is 1 when the file cannot
be used.

Examples:
  ddsguard indicators validate indicators.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: runIndicatorsValidate,
	}

	defaultCmd := &cobra.Command{
		Use:   "default",
		Short: "Print the built-in risk indicators as YAML",
		Long: `Print the built-in risk indicators as YAML. The output is a valid starting
point for a custom indicator file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(indicators.Default()); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	cmd.AddCommand(validateCmd, defaultCmd)
	return cmd
}

func runIndicatorsValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	path := args[0]

	snap, err := indicators.Load(path)
	if err != nil {
		var verr indicators.ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		fmt.Fprintf(out, "✗ %s is invalid (%d errors)\n", path, len(verr.Errors))
		for _, fe := range verr.Errors {
			fmt.Fprintf(out, "  - %s\n", fe.Error())
		}
		return &cli.StatusError{Code: cli.ExitError}
	}

	cfg := snap.Config
	fmt.Fprintf(out, "✓ %s is valid\n", path)
	fmt.Fprintf(out, "  version:               %s\n", snap.Version)
	fmt.Fprintf(out, "  high-risk countries:   %d\n", len(cfg.HighRiskCountries))
	fmt.Fprintf(out, "  high-risk commodities: %d\n", len(cfg.HighRiskCommodities))
	fmt.Fprintf(out, "  weights:               geographic=%.2f transparency=%.2f commodity=%.2f\n",
		cfg.Weights.Geographic, cfg.Weights.Transparency, cfg.Weights.Commodity)
	return nil
}
