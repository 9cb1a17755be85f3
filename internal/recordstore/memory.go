package recordstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory record store with the same per-call semantics as
// the SQL backends: each call is indivisible, there is no cross-call atomicity.
// It backs tests and local development.
type MemoryStore struct {
	mutex  sync.RWMutex
	tables map[string][]Row
}

// NewMemoryStore creates an empty in-memory record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string][]Row),
	}
}

func matches(row Row, filter Filter) bool {
	for k, want := range filter {
		if row[k] != want {
			return false
		}
	}
	return true
}

func (s *MemoryStore) Select(ctx context.Context, table string, filter Filter) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var result []Row
	for _, row := range s.tables[table] {
		if matches(row, filter) {
			result = append(result, row.Clone())
		}
	}
	return result, nil
}

func (s *MemoryStore) Insert(ctx context.Context, table string, row Row) (Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	inserted := row.Clone()
	if _, ok := inserted["id"]; !ok {
		inserted["id"] = uuid.NewString()
	}

	s.tables[table] = append(s.tables[table], inserted)
	return inserted.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, table string, patch Patch, filter Filter) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	var affected []Row
	for _, row := range s.tables[table] {
		if !matches(row, filter) {
			continue
		}
		for k, v := range patch {
			row[k] = v
		}
		affected = append(affected, row.Clone())
	}
	return affected, nil
}

func (s *MemoryStore) Delete(ctx context.Context, table string, filter Filter) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	kept := s.tables[table][:0]
	deleted := false
	for _, row := range s.tables[table] {
		if matches(row, filter) {
			deleted = true
			continue
		}
		kept = append(kept, row)
	}
	s.tables[table] = kept
	return deleted, nil
}
