package evidence

import (
	"context"
	"encoding/json"
	"io"
	"time"
)

// Record is the persisted audit trail of one compliance evaluation. Records
// are append-only: once stored they are only removed by retention.
type Record struct {
	// Identity
	ID         string `json:"id"`          // UUID v4
	DocumentID string `json:"document_id"` // Reference number or generated id

	// Decision
	DocumentType    string   `json:"document_type"`    // due_diligence_statement, supply_chain, unknown
	Decision        string   `json:"decision"`         // "admit" or "reject"
	Compliant       bool     `json:"compliant"`        // Admission outcome
	Score           float64  `json:"score"`            // Completeness or overall risk score
	ScoreDefined    bool     `json:"score_defined"`    // False when the score could not be computed
	ComplianceLevel string   `json:"compliance_level"` // low, medium, high, undetermined
	IssueTypes      []string `json:"issue_types"`      // Issue types in evaluation order
	Message         string   `json:"message"`          // Human readable audit message

	// Context is the audit context of the decision, including caller keys.
	Context map[string]string `json:"context"`

	// IndicatorsVersion identifies the risk indicator snapshot used.
	IndicatorsVersion string `json:"indicators_version"`

	// DecisionHash is the SHA-256 of the decision JSON.
	DecisionHash string `json:"decision_hash"`

	// Decision is the full decision JSON.
	DecisionJSON json.RawMessage `json:"decision_json,omitempty"`

	// Timestamps
	EvaluatedAt time.Time `json:"evaluated_at"` // Evaluation date of the decision
	RecordedAt  time.Time `json:"recorded_at"`  // When the record was written
}

// Query defines filter parameters for evidence records.
type Query struct {
	// Time range on RecordedAt
	StartTime *time.Time `json:"start_time,omitempty"` // Inclusive start time
	EndTime   *time.Time `json:"end_time,omitempty"`   // Inclusive end time

	// Filters
	DocumentID        string `json:"document_id,omitempty"`
	DocumentType      string `json:"document_type,omitempty"`
	Decision          string `json:"decision,omitempty"` // "admit" or "reject"
	ComplianceLevel   string `json:"compliance_level,omitempty"`
	IssueType         string `json:"issue_type,omitempty"` // Records carrying this issue type
	IndicatorsVersion string `json:"indicators_version,omitempty"`

	// Score range; records with an undefined score never match
	MinScore *float64 `json:"min_score,omitempty"`
	MaxScore *float64 `json:"max_score,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`  // Max records to return
	Offset int `json:"offset,omitempty"` // Skip N records

	// Sorting
	SortBy    string `json:"sort_by,omitempty"`    // "recorded_at", "evaluated_at", "score"
	SortOrder string `json:"sort_order,omitempty"` // "asc", "desc"
}

// Storage is an append-only evidence store. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Store persists a record. It returns ErrDuplicateRecord when a record
	// with the same ID exists.
	Store(ctx context.Context, record *Record) error

	// Query returns the records matching query, or an empty slice.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// QueryStream streams matching records. Both channels are closed when
	// the query completes; errCh carries at most one error.
	QueryStream(ctx context.Context, query *Query) (<-chan *Record, <-chan error, error)

	// Count returns the number of records matching query.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes matching records and returns how many were removed.
	// Only retention enforcement calls it.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases backend resources.
	Close() error
}

// Exporter writes evidence records in one output format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}
