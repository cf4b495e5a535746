package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/matthewbaird/streamconsole/internal/types"
)

// MemoryStore implements Store with in-process maps.
// Intended for demos and testing.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	kinds  map[string]map[int64]map[string]any
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{kinds: make(map[string]map[int64]map[string]any)}
}

func (s *MemoryStore) List(_ context.Context, kind string, q types.ListQuery) (types.ListResult, error) {
	q = q.Normalize()
	s.mu.RLock()
	var matched []types.Record
	for id, values := range s.kinds[kind] {
		if !matches(values, q.Filters) {
			continue
		}
		matched = append(matched, types.Persisted(id, values))
	}
	s.mu.RUnlock()

	sortRecords(matched, q.Sort)
	return types.ListResult{List: page(matched, q), Total: len(matched)}, nil
}

func (s *MemoryStore) Get(_ context.Context, kind string, id int64) (types.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	values, ok := s.kinds[kind][id]
	if !ok {
		return types.Record{}, fmt.Errorf("%s %d: %w", kind, id, types.ErrNotFound)
	}
	return types.Persisted(id, values), nil
}

func (s *MemoryStore) Create(_ context.Context, kind string, payload map[string]any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.kinds[kind]
	if !ok {
		rows = make(map[int64]map[string]any)
		s.kinds[kind] = rows
	}
	s.nextID++
	rows[s.nextID] = clean(payload)
	return s.nextID, nil
}

func (s *MemoryStore) Update(_ context.Context, kind string, id int64, payload map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, ok := s.kinds[kind][id]
	if !ok {
		return fmt.Errorf("%s %d: %w", kind, id, types.ErrNotFound)
	}
	merged := make(map[string]any, len(values)+len(payload))
	for k, v := range values {
		merged[k] = v
	}
	for k, v := range clean(payload) {
		merged[k] = v
	}
	s.kinds[kind][id] = merged
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, kind string, id int64, params map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, ok := s.kinds[kind][id]
	if !ok || !paramsMatch(values, params) {
		return fmt.Errorf("%s %d: %w", kind, id, types.ErrNotFound)
	}
	delete(s.kinds[kind], id)
	return nil
}
