package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/ddsguard/pkg/cli"
	"mercator-hq/ddsguard/pkg/evidence"
	"mercator-hq/ddsguard/pkg/evidence/export"
	"mercator-hq/ddsguard/pkg/evidence/recorder"
	"mercator-hq/ddsguard/pkg/validators"
)

type evidenceQueryFlags struct {
	documentID   string
	documentType string
	decision     string
	level        string
	issueType    string
	since        string
	until        string
	limit        int
	offset       int
	format       string
	output       string
	verify       bool
}

func newEvidenceCmd(global *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evidence",
		Short: "Query and maintain the evidence store",
		Long: `Query recorded decisions and enforce the retention policy of the evidence
store configured under evidence: in the configuration file.`,
	}
	cmd.AddCommand(newEvidenceQueryCmd(global), newEvidencePruneCmd(global))
	return cmd
}

func newEvidenceQueryCmd(global *globalFlags) *cobra.Command {
	flags := &evidenceQueryFlags{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query recorded decisions",
		Long: `Query recorded decisions, newest first.

Examples:
  # Rejected statements recorded since March
  ddsguard evidence query --decision reject --since 2025-03-01

  # Export everything about one statement as CSV
  ddsguard evidence query --document-id DDS-42 --format csv -o dds-42.csv

  # Check that stored decisions were not altered
  ddsguard evidence query --verify`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvidenceQuery(cmd, global, flags)
		},
	}

	cmd.Flags().StringVar(&flags.documentID, "document-id", "", "filter by document id")
	cmd.Flags().StringVar(&flags.documentType, "document-type", "", "filter by document type")
	cmd.Flags().StringVar(&flags.decision, "decision", "", "filter by decision: admit, reject")
	cmd.Flags().StringVar(&flags.level, "level", "", "filter by compliance level")
	cmd.Flags().StringVar(&flags.issueType, "issue-type", "", "records carrying this issue type")
	cmd.Flags().StringVar(&flags.since, "since", "", "recorded at or after, YYYY-MM-DD or RFC 3339")
	cmd.Flags().StringVar(&flags.until, "until", "", "recorded at or before, YYYY-MM-DD or RFC 3339")
	cmd.Flags().IntVar(&flags.limit, "limit", 100, "maximum number of records")
	cmd.Flags().IntVar(&flags.offset, "offset", 0, "records to skip")
	cmd.Flags().StringVar(&flags.format, "format", "text", "output format: text, json, csv")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().BoolVar(&flags.verify, "verify", false, "check decision hashes and fail on mismatch")
	return cmd
}

func (f *evidenceQueryFlags) query() (*evidence.Query, error) {
	q := &evidence.Query{
		DocumentID:      f.documentID,
		DocumentType:    f.documentType,
		Decision:        f.decision,
		ComplianceLevel: f.level,
		IssueType:       f.issueType,
		Limit:           f.limit,
		Offset:          f.offset,
		SortBy:          "recorded_at",
		SortOrder:       "desc",
	}
	if f.since != "" {
		t, err := validators.ParseReferenceTime(f.since)
		if err != nil {
			return nil, cli.NewConfigError("since", err.Error())
		}
		q.StartTime = &t
	}
	if f.until != "" {
		t, err := validators.ParseReferenceTime(f.until)
		if err != nil {
			return nil, cli.NewConfigError("until", err.Error())
		}
		// A bare date covers the whole day.
		if !strings.Contains(f.until, "T") {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		q.EndTime = &t
	}
	return q, nil
}

func runEvidenceQuery(cmd *cobra.Command, global *globalFlags, flags *evidenceQueryFlags) error {
	format, err := cli.ParseFormat(flags.format, cli.FormatText, cli.FormatJSON, cli.FormatCSV)
	if err != nil {
		return err
	}
	q, err := flags.query()
	if err != nil {
		return err
	}

	cfg, logger, err := global.setup(cmd)
	if err != nil {
		return err
	}

	store, err := openStorage(cmd.Context(), &cfg.Evidence, logger)
	if err != nil {
		return cli.NewCommandError("evidence query", err)
	}
	defer store.Close()

	records, err := store.Query(cmd.Context(), q)
	if err != nil {
		return cli.NewCommandError("evidence query", err)
	}

	out := cmd.OutOrStdout()
	if flags.output != "" {
		f, err := os.Create(flags.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if format == cli.FormatText {
		err = writeRecordTable(out, records)
	} else {
		var exp evidence.Exporter
		exp, err = export.New(string(format))
		if err == nil {
			err = exp.Export(cmd.Context(), records, out)
		}
	}
	if err != nil {
		return err
	}

	if flags.verify {
		var tampered []string
		for _, r := range records {
			if !recorder.Verify(r) {
				tampered = append(tampered, r.ID)
			}
		}
		if len(tampered) > 0 {
			return cli.NewCommandError("evidence query",
				fmt.Errorf("%d records failed hash verification: %s", len(tampered), strings.Join(tampered, ", ")))
		}
		logger.Info("evidence hashes verified", "record_count", len(records))
	}
	return nil
}

func writeRecordTable(w io.Writer, records []*evidence.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No records found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RECORDED\tDOCUMENT\tTYPE\tDECISION\tSCORE\tLEVEL\tISSUES")
	for _, r := range records {
		score := "-"
		if r.ScoreDefined {
			score = fmt.Sprintf("%.2f", r.Score)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			r.RecordedAt.UTC().Format(time.RFC3339),
			r.DocumentID,
			r.DocumentType,
			r.Decision,
			score,
			r.ComplianceLevel,
			len(r.IssueTypes),
		)
	}
	return tw.Flush()
}

func newEvidencePruneCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Apply the retention policy once",
		Long: `Delete records older than evidence.retention.days and trim the store to
evidence.retention.max_records. Records are archived first when
evidence.retention.archive_before_delete is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := global.setup(cmd)
			if err != nil {
				return err
			}

			store, err := openStorage(cmd.Context(), &cfg.Evidence, logger)
			if err != nil {
				return cli.NewCommandError("evidence prune", err)
			}
			defer store.Close()

			result, err := newPruner(store, &cfg.Evidence.Retention, logger).Prune(cmd.Context())
			if err != nil {
				return cli.NewCommandError("evidence prune", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Deleted %d records (%d by age, %d by count)\n", result.Deleted(), result.ByAge, result.ByCount)
			for _, path := range result.Archives {
				fmt.Fprintf(out, "Archived to %s\n", path)
			}
			return nil
		},
	}
}
