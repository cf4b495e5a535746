package activity

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	seen    map[string]bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]bool)}
}

func (s *MemoryStore) WriteEntries(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if s.seen[e.EventID] {
			continue
		}
		s.seen[e.EventID] = true
		e.OccurredAt = e.OccurredAt.UTC()
		s.entries = append(s.entries, e)
	}
	return nil
}

func (s *MemoryStore) QueryByRecord(_ context.Context, kind string, id int64, opts QueryOptions) ([]Entry, string, int, error) {
	var c *cursor
	if opts.Cursor != "" {
		parsed, err := parseCursor(opts.Cursor)
		if err != nil {
			return nil, "", 0, fmt.Errorf("%w: %v", ErrBadCursor, err)
		}
		c = &parsed
	}

	s.mu.RLock()
	var matched []Entry
	for _, e := range s.entries {
		if e.Kind != kind || e.RecordID != id {
			continue
		}
		if opts.Since != nil && e.OccurredAt.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && e.OccurredAt.After(*opts.Until) {
			continue
		}
		if !hasOp(opts.Ops, e.Op) {
			continue
		}
		matched = append(matched, e)
	}
	s.mu.RUnlock()

	newestFirst(matched)
	total := len(matched)

	page := make([]Entry, 0, len(matched))
	for _, e := range matched {
		if c == nil || c.after(e) {
			page = append(page, e)
		}
	}
	limit := clampLimit(opts.Limit, 100)
	var next string
	if len(page) > limit {
		page = page[:limit]
		next = cursorOf(page[len(page)-1])
	}
	return page, next, total, nil
}

func (s *MemoryStore) Recent(_ context.Context, opts RecentOptions) ([]Entry, int, error) {
	s.mu.RLock()
	var matched []Entry
	for _, e := range s.entries {
		if opts.Kind != "" && e.Kind != opts.Kind {
			continue
		}
		if opts.Since != nil && e.OccurredAt.Before(*opts.Since) {
			continue
		}
		if !hasOp(opts.Ops, e.Op) {
			continue
		}
		matched = append(matched, e)
	}
	s.mu.RUnlock()

	newestFirst(matched)
	total := len(matched)
	if limit := clampLimit(opts.Limit, 20); len(matched) > limit {
		matched = matched[:limit]
	}
	if matched == nil {
		matched = []Entry{}
	}
	return matched, total, nil
}

func newestFirst(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.OccurredAt.Equal(b.OccurredAt) {
			return a.EventID > b.EventID
		}
		return a.OccurredAt.After(b.OccurredAt)
	})
}
