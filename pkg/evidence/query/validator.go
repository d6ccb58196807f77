package query

import (
	"fmt"

	"mercator-hq/ddsguard/pkg/evidence"
)

const (
	// DefaultLimit is the number of records returned when no limit is set.
	DefaultLimit = 100

	// MaxLimit is the largest page a single query may request.
	MaxLimit = 10000
)

// ValidSortFields are the fields records can be ordered by.
var ValidSortFields = map[string]bool{
	"recorded_at":  true,
	"evaluated_at": true,
	"score":        true,
}

// ValidSortOrders are the accepted sort directions.
var ValidSortOrders = map[string]bool{
	"asc":  true,
	"desc": true,
}

// ValidDecisions are the accepted decision filters.
var ValidDecisions = map[string]bool{
	"admit":  true,
	"reject": true,
}

// Validate returns a QueryError describing the first invalid parameter of q.
func Validate(q *evidence.Query) error {
	if q.Limit < 0 {
		return evidence.NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > MaxLimit {
		return evidence.NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", MaxLimit, q.Limit))
	}
	if q.Offset < 0 {
		return evidence.NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}

	if q.SortBy != "" && !ValidSortFields[q.SortBy] {
		return evidence.NewQueryError(q, fmt.Errorf("invalid sort field: %s", q.SortBy))
	}
	if q.SortOrder != "" && !ValidSortOrders[q.SortOrder] {
		return evidence.NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}

	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return evidence.NewQueryError(q, fmt.Errorf("start_time must be before end_time"))
	}
	if q.MinScore != nil && q.MaxScore != nil && *q.MinScore > *q.MaxScore {
		return evidence.NewQueryError(q, fmt.Errorf("min_score must be <= max_score"))
	}

	if q.Decision != "" && !ValidDecisions[q.Decision] {
		return evidence.NewQueryError(q, fmt.Errorf("invalid decision: %s (must be 'admit' or 'reject')", q.Decision))
	}

	return nil
}

// ApplyDefaults fills in the limit and ordering of q.
func ApplyDefaults(q *evidence.Query) {
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.SortBy == "" {
		q.SortBy = "recorded_at"
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}
