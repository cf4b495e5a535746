// Package rowstore keeps an ordered, client-only list of records for nested
// repeatable-row editors. Rows are identified by synthetic tokens that never
// leave the store: snapshots handed to subscribers carry only values.
package rowstore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/matthewbaird/streamconsole/internal/types"
)

// ErrTokenNotFound is returned when a token does not name a row.
var ErrTokenNotFound = errors.New("row token not found")

// Store is an ordered list of locally identified rows. Every mutation
// replaces the list with a new snapshot; snapshots are never modified.
type Store struct {
	mu       sync.Mutex
	rows     []types.Record
	newToken func() string
	onChange []func([]map[string]any)
}

// Option configures a Store.
type Option func(*Store)

// WithOnChange registers fn to receive the token-free values after every
// mutation.
func WithOnChange(fn func([]map[string]any)) Option {
	return func(s *Store) { s.onChange = append(s.onChange, fn) }
}

// WithTokenFunc replaces the token generator. Generated tokens must be
// unique within the store.
func WithTokenFunc(fn func() string) Option {
	return func(s *Store) { s.newToken = fn }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{newToken: func() string { return uuid.New().String() }}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load replaces the rows with values, minting a token for each.
func (s *Store) Load(values []map[string]any) {
	s.mu.Lock()
	rows := make([]types.Record, 0, len(values))
	for _, v := range values {
		rows = append(rows, types.Local(s.mintLocked(rows), v))
	}
	s.rows = rows
	out := stripped(rows)
	s.mu.Unlock()
	s.notify(out)
}

// Add appends a row and returns it with its new token.
func (s *Store) Add(values map[string]any) types.Record {
	s.mu.Lock()
	rec := types.Local(s.mintLocked(s.rows), values)
	rows := make([]types.Record, len(s.rows), len(s.rows)+1)
	copy(rows, s.rows)
	s.rows = append(rows, rec)
	out := stripped(s.rows)
	s.mu.Unlock()
	s.notify(out)
	return rec
}

// Update merges values into the row named by token.
func (s *Store) Update(token string, values map[string]any) error {
	s.mu.Lock()
	i := s.indexLocked(token)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("update %s: %w", token, ErrTokenNotFound)
	}
	rows := make([]types.Record, len(s.rows))
	copy(rows, s.rows)
	rows[i] = rows[i].WithValues(values)
	s.rows = rows
	out := stripped(rows)
	s.mu.Unlock()
	s.notify(out)
	return nil
}

// Remove deletes the row named by token.
func (s *Store) Remove(token string) error {
	s.mu.Lock()
	i := s.indexLocked(token)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("remove %s: %w", token, ErrTokenNotFound)
	}
	rows := make([]types.Record, 0, len(s.rows)-1)
	rows = append(rows, s.rows[:i]...)
	rows = append(rows, s.rows[i+1:]...)
	s.rows = rows
	out := stripped(rows)
	s.mu.Unlock()
	s.notify(out)
	return nil
}

// Snapshot returns the current rows, tokens included, for the owning
// editor. The slice is shared and must not be modified.
func (s *Store) Snapshot() []types.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

// Values returns the rows as they cross the editor boundary: values only,
// with persisted ids kept and tokens removed.
func (s *Store) Values() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stripped(s.rows)
}

// Len returns the number of rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *Store) indexLocked(token string) int {
	if token == "" {
		return -1
	}
	for i, r := range s.rows {
		if r.Token == token {
			return i
		}
	}
	return -1
}

// mintLocked returns a token not used by any row in rows.
func (s *Store) mintLocked(rows []types.Record) string {
	for {
		tok := s.newToken()
		if tok == "" {
			continue
		}
		clash := false
		for _, r := range rows {
			if r.Token == tok {
				clash = true
				break
			}
		}
		if !clash {
			return tok
		}
	}
}

func (s *Store) notify(values []map[string]any) {
	for _, fn := range s.onChange {
		fn(values)
	}
}

func stripped(rows []types.Record) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = r.Flat()
	}
	return out
}
