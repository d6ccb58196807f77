package query

import (
	"strings"
	"testing"
	"time"

	"mercator-hq/ddsguard/pkg/evidence"
)

func TestValidate(t *testing.T) {
	now := time.Now()
	past := now.Add(-24 * time.Hour)
	low, high := 0.2, 0.9

	tests := []struct {
		name   string
		query  *evidence.Query
		errMsg string
	}{
		{
			name: "all filters",
			query: &evidence.Query{
				StartTime:       &past,
				EndTime:         &now,
				DocumentID:      "DDS-1",
				DocumentType:    "due_diligence_statement",
				Decision:        "reject",
				ComplianceLevel: "high",
				IssueType:       "expired_statement",
				MinScore:        &low,
				MaxScore:        &high,
				Limit:           100,
				SortBy:          "score",
				SortOrder:       "asc",
			},
		},
		{name: "empty", query: &evidence.Query{}},
		{name: "negative limit", query: &evidence.Query{Limit: -1}, errMsg: "limit must be >= 0"},
		{name: "limit above max", query: &evidence.Query{Limit: MaxLimit + 1}, errMsg: "limit must be <="},
		{name: "negative offset", query: &evidence.Query{Offset: -1}, errMsg: "offset must be >= 0"},
		{name: "sort field", query: &evidence.Query{SortBy: "cost"}, errMsg: "invalid sort field"},
		{name: "sort order", query: &evidence.Query{SortOrder: "up"}, errMsg: "invalid sort order"},
		{name: "inverted time range", query: &evidence.Query{StartTime: &now, EndTime: &past}, errMsg: "start_time must be before end_time"},
		{name: "inverted score range", query: &evidence.Query{MinScore: &high, MaxScore: &low}, errMsg: "min_score must be <= max_score"},
		{name: "decision", query: &evidence.Query{Decision: "allow"}, errMsg: "invalid decision"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.query)
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, want %q", err, tt.errMsg)
			}
			if _, ok := err.(*evidence.QueryError); !ok {
				t.Errorf("Validate() error type = %T, want *evidence.QueryError", err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	q := &evidence.Query{}
	ApplyDefaults(q)
	if q.Limit != DefaultLimit || q.SortBy != "recorded_at" || q.SortOrder != "desc" {
		t.Errorf("ApplyDefaults() = %+v", q)
	}

	q = &evidence.Query{Limit: 5, SortBy: "score", SortOrder: "asc"}
	ApplyDefaults(q)
	if q.Limit != 5 || q.SortBy != "score" || q.SortOrder != "asc" {
		t.Errorf("ApplyDefaults() overwrote explicit values: %+v", q)
	}
}

func TestMatches(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	record := &evidence.Record{
		DocumentID:      "DDS-1",
		DocumentType:    "due_diligence_statement",
		Decision:        "reject",
		ComplianceLevel: "medium",
		IssueTypes:      []string{"expired_statement", "missing_risk_mitigation"},
		Score:           0.5,
		ScoreDefined:    true,
		RecordedAt:      at,
	}
	before, after := at.Add(-time.Hour), at.Add(time.Hour)
	min, max := 0.6, 0.4

	tests := []struct {
		name  string
		query evidence.Query
		want  bool
	}{
		{name: "no filters", want: true},
		{name: "document id", query: evidence.Query{DocumentID: "DDS-1"}, want: true},
		{name: "other document", query: evidence.Query{DocumentID: "DDS-2"}},
		{name: "issue type", query: evidence.Query{IssueType: "expired_statement"}, want: true},
		{name: "absent issue type", query: evidence.Query{IssueType: "invalid_products"}},
		{name: "decision", query: evidence.Query{Decision: "admit"}},
		{name: "inside time range", query: evidence.Query{StartTime: &before, EndTime: &after}, want: true},
		{name: "after range", query: evidence.Query{EndTime: &before}},
		{name: "below min score", query: evidence.Query{MinScore: &min}},
		{name: "above max score", query: evidence.Query{MaxScore: &max}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(record, &tt.query); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}

	undefined := *record
	undefined.ScoreDefined = false
	undefined.Score = 0
	zero := 0.0
	if Matches(&undefined, &evidence.Query{MinScore: &zero}) {
		t.Error("records with an undefined score must not match a score filter")
	}
}

func TestSortAndPage(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []*evidence.Record{
		{ID: "a", Score: 0.3, RecordedAt: base.Add(2 * time.Hour)},
		{ID: "b", Score: 0.9, RecordedAt: base},
		{ID: "c", Score: 0.6, RecordedAt: base.Add(time.Hour)},
	}

	Sort(records, &evidence.Query{SortBy: "recorded_at", SortOrder: "desc"})
	if ids := idsOf(records); ids != "a,c,b" {
		t.Errorf("recorded_at desc = %s", ids)
	}

	Sort(records, &evidence.Query{SortBy: "score", SortOrder: "asc"})
	if ids := idsOf(records); ids != "a,c,b" {
		t.Errorf("score asc = %s", ids)
	}

	if got := idsOf(Page(records, &evidence.Query{Offset: 1, Limit: 1})); got != "c" {
		t.Errorf("Page(1,1) = %s", got)
	}
	if got := idsOf(Page(records, &evidence.Query{Offset: 1})); got != "c,b" {
		t.Errorf("Page(1,0) = %s", got)
	}
	if got := Page(records, &evidence.Query{Offset: 5}); len(got) != 0 {
		t.Errorf("Page past end = %v", got)
	}
}

func idsOf(records []*evidence.Record) string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return strings.Join(ids, ",")
}
