package query

import (
	"slices"
	"sort"

	"mercator-hq/ddsguard/pkg/evidence"
)

// Matches reports whether record satisfies every filter of q. Pagination and
// ordering are ignored.
func Matches(record *evidence.Record, q *evidence.Query) bool {
	if q.StartTime != nil && record.RecordedAt.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && record.RecordedAt.After(*q.EndTime) {
		return false
	}

	if q.DocumentID != "" && record.DocumentID != q.DocumentID {
		return false
	}
	if q.DocumentType != "" && record.DocumentType != q.DocumentType {
		return false
	}
	if q.Decision != "" && record.Decision != q.Decision {
		return false
	}
	if q.ComplianceLevel != "" && record.ComplianceLevel != q.ComplianceLevel {
		return false
	}
	if q.IndicatorsVersion != "" && record.IndicatorsVersion != q.IndicatorsVersion {
		return false
	}
	if q.IssueType != "" && !slices.Contains(record.IssueTypes, q.IssueType) {
		return false
	}

	if q.MinScore != nil || q.MaxScore != nil {
		if !record.ScoreDefined {
			return false
		}
		if q.MinScore != nil && record.Score < *q.MinScore {
			return false
		}
		if q.MaxScore != nil && record.Score > *q.MaxScore {
			return false
		}
	}

	return true
}

// Sort orders records by q.SortBy and q.SortOrder. Ties keep their input
// order.
func Sort(records []*evidence.Record, q *evidence.Query) {
	less := func(a, b *evidence.Record) bool {
		switch q.SortBy {
		case "evaluated_at":
			return a.EvaluatedAt.Before(b.EvaluatedAt)
		case "score":
			return a.Score < b.Score
		default:
			return a.RecordedAt.Before(b.RecordedAt)
		}
	}
	desc := q.SortOrder == "desc"
	sort.SliceStable(records, func(i, j int) bool {
		if desc {
			return less(records[j], records[i])
		}
		return less(records[i], records[j])
	})
}

// Page returns the window of records selected by q.Offset and q.Limit. A
// zero limit returns everything after the offset.
func Page(records []*evidence.Record, q *evidence.Query) []*evidence.Record {
	if q.Offset >= len(records) {
		return []*evidence.Record{}
	}
	records = records[q.Offset:]
	if q.Limit > 0 && q.Limit < len(records) {
		records = records[:q.Limit]
	}
	return records
}
