package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mercator-hq/ddsguard/pkg/evidence"
	"mercator-hq/ddsguard/pkg/evidence/query"
)

// columns is the column order shared by every SQL backend.
const columns = `id, document_id, document_type, decision, compliant, score, score_defined,
	compliance_level, issue_types, message, context, indicators_version,
	decision_hash, decision_json, evaluated_at, recorded_at`

// dialect captures the differences between the SQL backends.
type dialect struct {
	backend string

	// placeholder returns the bind parameter for the n-th argument (1-based).
	placeholder func(n int) string

	// timeValue converts a timestamp to its stored representation.
	timeValue func(t time.Time) any

	// issueType is the condition matching records carrying one issue type,
	// with %s standing for the placeholder.
	issueType string
}

// rowScanner is satisfied by *sql.Row, *sql.Rows and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// insertSQL returns the insert statement. Existing IDs are left untouched and
// reported through the affected row count.
func (d dialect) insertSQL() string {
	ph := make([]string, 16)
	for i := range ph {
		ph[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO evidence (%s) VALUES (%s) ON CONFLICT (id) DO NOTHING",
		columns, strings.Join(ph, ", "))
}

// insertArgs returns the values of record in column order.
func (d dialect) insertArgs(record *evidence.Record) ([]any, error) {
	issueTypes := record.IssueTypes
	if issueTypes == nil {
		issueTypes = []string{}
	}
	issuesJSON, err := json.Marshal(issueTypes)
	if err != nil {
		return nil, err
	}
	contextJSON, err := json.Marshal(record.Context)
	if err != nil {
		return nil, err
	}
	decisionJSON := string(record.DecisionJSON)
	if decisionJSON == "" {
		decisionJSON = "null"
	}

	return []any{
		record.ID, record.DocumentID, record.DocumentType, record.Decision,
		record.Compliant, record.Score, record.ScoreDefined,
		record.ComplianceLevel, string(issuesJSON), record.Message, string(contextJSON),
		record.IndicatorsVersion, record.DecisionHash, decisionJSON,
		d.timeValue(record.EvaluatedAt), d.timeValue(record.RecordedAt),
	}, nil
}

// where builds the WHERE clause (without the keyword) and its arguments.
func (d dialect) where(q *evidence.Query) (string, []any) {
	var conditions []string
	var args []any
	add := func(format string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(format, d.placeholder(len(args))))
	}

	if q.StartTime != nil {
		add("recorded_at >= %s", d.timeValue(*q.StartTime))
	}
	if q.EndTime != nil {
		add("recorded_at <= %s", d.timeValue(*q.EndTime))
	}
	if q.DocumentID != "" {
		add("document_id = %s", q.DocumentID)
	}
	if q.DocumentType != "" {
		add("document_type = %s", q.DocumentType)
	}
	if q.Decision != "" {
		add("decision = %s", q.Decision)
	}
	if q.ComplianceLevel != "" {
		add("compliance_level = %s", q.ComplianceLevel)
	}
	if q.IndicatorsVersion != "" {
		add("indicators_version = %s", q.IndicatorsVersion)
	}
	if q.IssueType != "" {
		add(d.issueType, q.IssueType)
	}
	if q.MinScore != nil || q.MaxScore != nil {
		conditions = append(conditions, "score_defined")
	}
	if q.MinScore != nil {
		add("score >= %s", *q.MinScore)
	}
	if q.MaxScore != nil {
		add("score <= %s", *q.MaxScore)
	}

	return strings.Join(conditions, " AND "), args
}

// selectSQL returns the paginated, ordered select for q. q must already be
// validated and defaulted.
func (d dialect) selectSQL(q *evidence.Query) (string, []any) {
	where, args := d.where(q)
	stmt := "SELECT " + columns + " FROM evidence"
	if where != "" {
		stmt += " WHERE " + where
	}
	// Sort fields are checked against query.ValidSortFields.
	stmt += fmt.Sprintf(" ORDER BY %s %s, id %s", q.SortBy, strings.ToUpper(q.SortOrder), strings.ToUpper(q.SortOrder))
	stmt += fmt.Sprintf(" LIMIT %d", q.Limit)
	if q.Offset > 0 {
		stmt += fmt.Sprintf(" OFFSET %d", q.Offset)
	}
	return stmt, args
}

func (d dialect) countSQL(q *evidence.Query) (string, []any) {
	where, args := d.where(q)
	stmt := "SELECT COUNT(*) FROM evidence"
	if where != "" {
		stmt += " WHERE " + where
	}
	return stmt, args
}

func (d dialect) deleteSQL(q *evidence.Query) (string, []any) {
	where, args := d.where(q)
	stmt := "DELETE FROM evidence"
	if where != "" {
		stmt += " WHERE " + where
	}
	return stmt, args
}

// prepare validates q and returns a defaulted copy.
func prepare(q *evidence.Query) (*evidence.Query, error) {
	if q == nil {
		q = &evidence.Query{}
	}
	if err := query.Validate(q); err != nil {
		return nil, err
	}
	cp := *q
	query.ApplyDefaults(&cp)
	return &cp, nil
}

// scannedRow holds the raw column values before conversion to a Record.
type scannedRow struct {
	record       evidence.Record
	issueTypes   string
	context      string
	decisionJSON string
}

func (r *scannedRow) dest(evaluatedAt, recordedAt any) []any {
	return []any{
		&r.record.ID, &r.record.DocumentID, &r.record.DocumentType, &r.record.Decision,
		&r.record.Compliant, &r.record.Score, &r.record.ScoreDefined,
		&r.record.ComplianceLevel, &r.issueTypes, &r.record.Message, &r.context,
		&r.record.IndicatorsVersion, &r.record.DecisionHash, &r.decisionJSON,
		evaluatedAt, recordedAt,
	}
}

func (r *scannedRow) finish() (*evidence.Record, error) {
	if err := json.Unmarshal([]byte(r.issueTypes), &r.record.IssueTypes); err != nil {
		return nil, fmt.Errorf("decode issue_types: %w", err)
	}
	if r.context != "" && r.context != "null" {
		if err := json.Unmarshal([]byte(r.context), &r.record.Context); err != nil {
			return nil, fmt.Errorf("decode context: %w", err)
		}
	}
	if r.decisionJSON != "" && r.decisionJSON != "null" {
		r.record.DecisionJSON = []byte(r.decisionJSON)
	}
	return &r.record, nil
}
