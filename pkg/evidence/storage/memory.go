package storage

import (
	"context"
	"fmt"
	"sync"

	"mercator-hq/ddsguard/pkg/evidence"
	"mercator-hq/ddsguard/pkg/evidence/query"
)

// MemoryStorage implements evidence.Storage in memory. Records are lost on
// restart.
type MemoryStorage struct {
	mu      sync.RWMutex
	records []*evidence.Record
	index   map[string]int
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{index: make(map[string]int)}
}

// Store keeps a copy of record.
func (s *MemoryStorage) Store(ctx context.Context, record *evidence.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[record.ID]; ok {
		return evidence.NewStorageError("memory", "store", fmt.Errorf("%w: %s", evidence.ErrDuplicateRecord, record.ID))
	}
	s.index[record.ID] = len(s.records)
	s.records = append(s.records, copyRecord(record))
	return nil
}

// Query returns copies of the records matching q.
func (s *MemoryStorage) Query(ctx context.Context, q *evidence.Query) ([]*evidence.Record, error) {
	q, err := prepare(q)
	if err != nil {
		return nil, err
	}
	return s.matching(q, true), nil
}

// QueryStream streams the records matching q.
func (s *MemoryStorage) QueryStream(ctx context.Context, q *evidence.Query) (<-chan *evidence.Record, <-chan error, error) {
	q, err := prepare(q)
	if err != nil {
		return nil, nil, err
	}
	results := s.matching(q, true)

	recordsCh := make(chan *evidence.Record, 100)
	errCh := make(chan error, 1)
	go func() {
		defer close(recordsCh)
		defer close(errCh)
		for _, record := range results {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
	}()
	return recordsCh, errCh, nil
}

// Count returns the number of records matching q.
func (s *MemoryStorage) Count(ctx context.Context, q *evidence.Query) (int64, error) {
	q, err := prepare(q)
	if err != nil {
		return 0, err
	}
	return int64(len(s.matching(q, false))), nil
}

// Delete removes the records matching q, ignoring pagination.
func (s *MemoryStorage) Delete(ctx context.Context, q *evidence.Query) (int64, error) {
	q, err := prepare(q)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	var deleted int64
	for _, record := range s.records {
		if query.Matches(record, q) {
			deleted++
			continue
		}
		kept = append(kept, record)
	}
	clear(s.records[len(kept):])
	s.records = kept

	s.index = make(map[string]int, len(kept))
	for i, record := range kept {
		s.index[record.ID] = i
	}
	return deleted, nil
}

// Close releases the stored records.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.index = make(map[string]int)
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// matching filters, orders and optionally paginates copies of the records.
func (s *MemoryStorage) matching(q *evidence.Query, paginate bool) []*evidence.Record {
	s.mu.RLock()
	var results []*evidence.Record
	for _, record := range s.records {
		if query.Matches(record, q) {
			results = append(results, copyRecord(record))
		}
	}
	s.mu.RUnlock()

	if !paginate {
		return results
	}
	query.Sort(results, q)
	return query.Page(results, q)
}

func copyRecord(r *evidence.Record) *evidence.Record {
	cp := *r
	cp.IssueTypes = append([]string(nil), r.IssueTypes...)
	if r.Context != nil {
		cp.Context = make(map[string]string, len(r.Context))
		for k, v := range r.Context {
			cp.Context[k] = v
		}
	}
	cp.DecisionJSON = append([]byte(nil), r.DecisionJSON...)
	return &cp
}
