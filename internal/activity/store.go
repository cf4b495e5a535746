package activity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matthewbaird/streamconsole/internal/types"
)

// ErrBadCursor is returned for a cursor no query produced.
var ErrBadCursor = errors.New("activity: bad cursor")

// Entry is one change in the history of a record.
type Entry struct {
	EventID    string         `json:"event_id"`
	Kind       string         `json:"kind"`
	RecordID   int64          `json:"record_id"`
	Op         types.ChangeOp `json:"op"`
	OccurredAt time.Time      `json:"occurred_at"`
	Summary    string         `json:"summary"`
}

// Store persists and queries activity entries.
type Store interface {
	// WriteEntries stores entries. An event id already stored is skipped.
	WriteEntries(ctx context.Context, entries []Entry) error
	// QueryByRecord returns the history of one record, the cursor of the
	// next page ("" on the last page) and the total matching count.
	QueryByRecord(ctx context.Context, kind string, id int64, opts QueryOptions) ([]Entry, string, int, error)
	// Recent returns the latest entries across records and the total count.
	Recent(ctx context.Context, opts RecentOptions) ([]Entry, int, error)
}

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore. Call CreateTable before use.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// CreateTable creates the activity_entries table if it does not exist.
func (s *SQLiteStore) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS activity_entries (
			event_id     TEXT PRIMARY KEY,
			kind         TEXT NOT NULL,
			record_id    INTEGER NOT NULL,
			op           TEXT NOT NULL,
			occurred_at  INTEGER NOT NULL,
			summary      TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_activity_record
			ON activity_entries (kind, record_id, occurred_at DESC, event_id DESC);
		CREATE INDEX IF NOT EXISTS idx_activity_time
			ON activity_entries (occurred_at DESC, event_id DESC);
	`)
	if err != nil {
		return fmt.Errorf("create activity_entries table: %w", err)
	}
	return nil
}

// WriteEntries batch-inserts activity entries.
func (s *SQLiteStore) WriteEntries(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(`INSERT INTO activity_entries
		(event_id, kind, record_id, op, occurred_at, summary) VALUES `)
	args := make([]any, 0, len(entries)*6)
	for i, e := range entries {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?, ?, ?, ?)")
		args = append(args, e.EventID, e.Kind, e.RecordID, string(e.Op), e.OccurredAt.UnixNano(), e.Summary)
	}
	b.WriteString(" ON CONFLICT DO NOTHING")
	if _, err := s.db.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("writing activity entries: %w", err)
	}
	return nil
}

// where accumulates conditions and their arguments.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) ops(ops []types.ChangeOp) {
	if len(ops) == 0 {
		return
	}
	ph := make([]string, len(ops))
	args := make([]any, len(ops))
	for i, op := range ops {
		ph[i] = "?"
		args[i] = string(op)
	}
	w.add("op IN ("+strings.Join(ph, ", ")+")", args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return "1 = 1"
	}
	return strings.Join(w.conds, " AND ")
}

// QueryByRecord returns one record's history with filtering and pagination.
func (s *SQLiteStore) QueryByRecord(ctx context.Context, kind string, id int64, opts QueryOptions) ([]Entry, string, int, error) {
	limit := clampLimit(opts.Limit, 100)

	var w where
	w.add("kind = ?", kind)
	w.add("record_id = ?", id)
	if opts.Since != nil {
		w.add("occurred_at >= ?", opts.Since.UnixNano())
	}
	if opts.Until != nil {
		w.add("occurred_at <= ?", opts.Until.UnixNano())
	}
	w.ops(opts.Ops)

	// the total ignores the cursor
	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM activity_entries WHERE "+w.String(), w.args...).Scan(&total); err != nil {
		return nil, "", 0, fmt.Errorf("counting activity entries: %w", err)
	}

	if opts.Cursor != "" {
		c, err := parseCursor(opts.Cursor)
		if err != nil {
			return nil, "", 0, fmt.Errorf("%w: %v", ErrBadCursor, err)
		}
		n := c.at.UnixNano()
		w.add("(occurred_at < ? OR (occurred_at = ? AND event_id < ?))", n, n, c.eventID)
	}

	entries, err := s.query(ctx, w, limit+1)
	if err != nil {
		return nil, "", 0, err
	}
	var next string
	if len(entries) > limit {
		entries = entries[:limit]
		next = cursorOf(entries[len(entries)-1])
	}
	return entries, next, total, nil
}

// Recent returns the latest entries across records.
func (s *SQLiteStore) Recent(ctx context.Context, opts RecentOptions) ([]Entry, int, error) {
	limit := clampLimit(opts.Limit, 20)

	var w where
	if opts.Kind != "" {
		w.add("kind = ?", opts.Kind)
	}
	if opts.Since != nil {
		w.add("occurred_at >= ?", opts.Since.UnixNano())
	}
	w.ops(opts.Ops)

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM activity_entries WHERE "+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting activity entries: %w", err)
	}
	entries, err := s.query(ctx, w, limit)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (s *SQLiteStore) query(ctx context.Context, w where, limit int) ([]Entry, error) {
	q := `SELECT event_id, kind, record_id, op, occurred_at, summary
		FROM activity_entries
		WHERE ` + w.String() + `
		ORDER BY occurred_at DESC, event_id DESC
		LIMIT ?`
	args := append(append([]any{}, w.args...), limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying activity entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e     Entry
			op    string
			nanos int64
		)
		if err := rows.Scan(&e.EventID, &e.Kind, &e.RecordID, &op, &nanos, &e.Summary); err != nil {
			return nil, fmt.Errorf("scanning activity entry: %w", err)
		}
		e.Op = types.ChangeOp(op)
		e.OccurredAt = time.Unix(0, nanos).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
