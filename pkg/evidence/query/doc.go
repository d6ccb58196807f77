// Package query validates evidence queries and matches records against them.
//
// Validate rejects out-of-range pagination, unknown sort fields, inverted time
// and score ranges, and decisions other than "admit" or "reject".
// ApplyDefaults fills in the page size and the newest-first ordering used by
// every backend.
//
// Matches and Sort evaluate a query in memory. The memory backend uses them
// directly; the SQL backends translate the same filters to WHERE clauses.
//
//	q := &evidence.Query{Decision: "reject", IssueType: "expired_statement"}
//	if err := query.Validate(q); err != nil {
//	    return err
//	}
//	records, err := store.Query(ctx, q)
package query
