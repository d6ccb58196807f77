package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/ddsguard/pkg/cli"
	"mercator-hq/ddsguard/pkg/document"
	"mercator-hq/ddsguard/pkg/engine"
	"mercator-hq/ddsguard/pkg/indicators"
	"mercator-hq/ddsguard/pkg/validators"
)

type evaluateFlags struct {
	input      string
	indicators string
	now        string
	format     string
	record     bool
}

func newEvaluateCmd(global *globalFlags) *cobra.Command {
	flags := &evaluateFlags{}

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a statement or supply-chain document",
		Long: `Evaluate a due-diligence statement or supply-chain document and print the
decision.

The exit status is 0 when the document is compliant and 2 when it is not.
Input is read from a JSON or YAML file, or from stdin with --input -.

Examples:
  # Evaluate as of a fixed date
  ddsguard evaluate --input statement.json --now 2025-03-01

  # Use custom indicators and print the full decision as JSON
  ddsguard evaluate -i chain.yaml --indicators indicators.yaml --format json

  # Keep the decision in the evidence store
  ddsguard evaluate -i statement.json --record`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd, global, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "document file, or - for stdin (required)")
	cmd.Flags().StringVar(&flags.indicators, "indicators", "", "risk indicator file (overrides engine.indicators_path)")
	cmd.Flags().StringVar(&flags.now, "now", "", "reference date, YYYY-MM-DD or RFC 3339 (default: current time)")
	cmd.Flags().StringVar(&flags.format, "format", "text", "output format: text, json")
	cmd.Flags().BoolVar(&flags.record, "record", false, "write the decision to the evidence store")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runEvaluate(cmd *cobra.Command, global *globalFlags, flags *evaluateFlags) error {
	format, err := cli.ParseFormat(flags.format, cli.FormatText, cli.FormatJSON)
	if err != nil {
		return err
	}

	var opts []engine.Option
	if flags.now != "" {
		now, err := validators.ParseReferenceTime(flags.now)
		if err != nil {
			return err
		}
		opts = append(opts, engine.WithNow(now))
	}

	cfg, logger, err := global.setup(cmd)
	if err != nil {
		return err
	}

	data, err := readInput(cmd, flags.input)
	if err != nil {
		return err
	}

	path := cfg.Engine.IndicatorsPath
	if flags.indicators != "" {
		path = flags.indicators
	}
	snap, err := loadIndicators(path)
	if err != nil {
		return err
	}

	engineOpts := []engine.EngineOption{
		engine.WithLogger(logger),
		engine.WithDefaultKind(document.Kind(cfg.Engine.DefaultDocumentType)),
	}
	if flags.record {
		store, err := openStorage(cmd.Context(), &cfg.Evidence, logger)
		if err != nil {
			return cli.NewCommandError("evaluate", err)
		}
		defer store.Close()

		evidenceCfg := cfg.Evidence
		evidenceCfg.Enabled = true
		rec := newRecorder(store, &evidenceCfg, logger)
		defer rec.Close()
		engineOpts = append(engineOpts, engine.WithAuditSink(rec))
	}

	eng, err := engine.New(indicators.NewStore(snap, logger), engineOpts...)
	if err != nil {
		return err
	}

	opts = append(opts, engine.WithAuditContext(map[string]string{"source": "cli", "input": flags.input}))
	d := eng.EvaluateBytes(cmd.Context(), data, formatForPath(flags.input), opts...)

	if format == cli.FormatJSON {
		err = cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), d)
	} else {
		err = cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), decisionText{d})
	}
	if err != nil {
		return err
	}

	if !d.Compliant {
		return cli.NonCompliant()
	}
	return nil
}

func readInput(cmd *cobra.Command, input string) ([]byte, error) {
	if input == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

// decisionText renders a decision for terminals.
type decisionText struct {
	d *engine.Decision
}

func (t decisionText) WriteText(w io.Writer) error {
	d := t.d

	verdict := "NOT COMPLIANT"
	if d.Compliant {
		verdict = "COMPLIANT"
	}
	score := "undefined"
	if d.ScoreDefined {
		score = fmt.Sprintf("%.2f", d.Score)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s %s\n", verdict, d.DocumentType, d.DocumentID)
	fmt.Fprintf(&b, "Score: %s  Level: %s  Indicators: %s\n", score, d.ComplianceLevel, d.IndicatorsVersion)

	if len(d.Issues) > 0 {
		fmt.Fprintf(&b, "\nIssues (%d):\n", len(d.Issues))
		for _, issue := range d.Issues {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", issue.Severity, issue.Type, issue.Description)
			if len(issue.Subjects) > 0 {
				fmt.Fprintf(&b, "         %s\n", strings.Join(issue.Subjects, ", "))
			}
		}
	}
	if len(d.Recommendations) > 0 {
		fmt.Fprintf(&b, "\nRecommendations:\n")
		for _, r := range d.Recommendations {
			fmt.Fprintf(&b, "  [%s, %s] %s\n", r.Priority, r.Timeline, r.Action)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
