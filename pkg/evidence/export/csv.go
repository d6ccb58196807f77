package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"mercator-hq/ddsguard/pkg/evidence"
)

// Header is the CSV column order.
var Header = []string{
	"id", "document_id", "document_type", "decision", "compliant",
	"score", "score_defined", "compliance_level", "issue_types", "message",
	"context", "indicators_version", "decision_hash", "evaluated_at", "recorded_at",
}

// CSVExporter exports evidence records to CSV format. The decision JSON is
// not exported; issue types are joined with ";".
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Export writes records to w in CSV format.
func (e *CSVExporter) Export(ctx context.Context, records []*evidence.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(Header); err != nil {
			return evidence.NewExportError("csv", len(records), err)
		}
	}
	for _, record := range records {
		row, err := recordToRow(record)
		if err != nil {
			return evidence.NewExportError("csv", len(records), err)
		}
		if err := writer.Write(row); err != nil {
			return evidence.NewExportError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return evidence.NewExportError("csv", len(records), err)
	}
	return nil
}

// ExportStream writes records from recordsCh, flushing every 100 rows.
func (e *CSVExporter) ExportStream(ctx context.Context, recordsCh <-chan *evidence.Record, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(Header); err != nil {
			return evidence.NewExportError("csv", 0, err)
		}
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return evidence.NewExportError("csv", count, err)
				}
				return nil
			}

			row, err := recordToRow(record)
			if err != nil {
				return evidence.NewExportError("csv", count, err)
			}
			if err := writer.Write(row); err != nil {
				return evidence.NewExportError("csv", count, err)
			}

			count++
			if count%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return evidence.NewExportError("csv", count, err)
				}
			}
		}
	}
}

func recordToRow(record *evidence.Record) ([]string, error) {
	formatTime := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339)
	}

	score := ""
	if record.ScoreDefined {
		score = strconv.FormatFloat(record.Score, 'f', 4, 64)
	}

	auditCtx := ""
	if len(record.Context) > 0 {
		data, err := json.Marshal(record.Context)
		if err != nil {
			return nil, err
		}
		auditCtx = string(data)
	}

	return []string{
		record.ID,
		record.DocumentID,
		record.DocumentType,
		record.Decision,
		strconv.FormatBool(record.Compliant),
		score,
		strconv.FormatBool(record.ScoreDefined),
		record.ComplianceLevel,
		strings.Join(record.IssueTypes, ";"),
		record.Message,
		auditCtx,
		record.IndicatorsVersion,
		record.DecisionHash,
		formatTime(record.EvaluatedAt),
		formatTime(record.RecordedAt),
	}, nil
}
