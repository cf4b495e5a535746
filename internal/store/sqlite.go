package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matthewbaird/streamconsole/internal/types"
)

// SQLiteStore implements Store over a single records table. Properties are
// kept as a JSON document and filtered with SQLite's JSON functions.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore. Call CreateTable before use.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// CreateTable creates the records table if it does not exist.
func (s *SQLiteStore) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			kind        TEXT NOT NULL,
			properties  TEXT NOT NULL DEFAULT '{}',
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_records_kind ON records (kind, id DESC);
	`)
	if err != nil {
		return fmt.Errorf("create records table: %w", err)
	}
	return nil
}

// jsonPath addresses a top-level property.
func jsonPath(key string) string {
	return `$."` + strings.ReplaceAll(key, `"`, `\"`) + `"`
}

// propertyText mirrors text(): booleans render as true/false, everything
// else as SQLite's text cast.
const propertyText = `CASE json_type(properties, ?)
	WHEN 'true' THEN 'true'
	WHEN 'false' THEN 'false'
	ELSE COALESCE(CAST(json_extract(properties, ?) AS TEXT), '')
END`

func likeEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(r.Replace(s)) + "%"
}

// where builds the filter clause of a list query.
func where(kind string, filters map[string]any) (string, []any) {
	clauses := []string{"kind = ?"}
	args := []any{kind}
	for k, want := range filters {
		if want == nil || text(want) == "" {
			continue
		}
		if k == KeywordFilter {
			clauses = append(clauses, `EXISTS (
				SELECT 1 FROM json_each(records.properties)
				WHERE json_each.type = 'text' AND lower(json_each.value) LIKE ? ESCAPE '\')`)
			args = append(args, likeEscape(text(want)))
			continue
		}
		p := jsonPath(k)
		clauses = append(clauses, propertyText+" = ?")
		args = append(args, p, p, text(want))
	}
	return strings.Join(clauses, " AND "), args
}

func (s *SQLiteStore) List(ctx context.Context, kind string, q types.ListQuery) (types.ListResult, error) {
	q = q.Normalize()
	cond, args := where(kind, q.Filters)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE "+cond, args...).Scan(&total); err != nil {
		return types.ListResult{}, fmt.Errorf("count %s: %w", kind, err)
	}

	order := "id DESC"
	if q.Sort != nil && q.Sort.Field != "" {
		dir := "ASC"
		if q.Sort.Order == types.SortDesc {
			dir = "DESC"
		}
		order = "json_extract(properties, ?) " + dir + ", id DESC"
		args = append(args, jsonPath(q.Sort.Field))
	}
	args = append(args, q.PageSize, q.Offset())

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, properties FROM records WHERE "+cond+" ORDER BY "+order+" LIMIT ? OFFSET ?", args...)
	if err != nil {
		return types.ListResult{}, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	list := []types.Record{}
	for rows.Next() {
		var id int64
		var props string
		if err := rows.Scan(&id, &props); err != nil {
			return types.ListResult{}, fmt.Errorf("scan %s: %w", kind, err)
		}
		rec, err := decodeRecord(id, props)
		if err != nil {
			return types.ListResult{}, err
		}
		list = append(list, rec)
	}
	if err := rows.Err(); err != nil {
		return types.ListResult{}, fmt.Errorf("list %s: %w", kind, err)
	}
	return types.ListResult{List: list, Total: total}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, kind string, id int64) (types.Record, error) {
	var props string
	err := s.db.QueryRowContext(ctx,
		"SELECT properties FROM records WHERE kind = ? AND id = ?", kind, id).Scan(&props)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Record{}, fmt.Errorf("%s %d: %w", kind, id, types.ErrNotFound)
	}
	if err != nil {
		return types.Record{}, fmt.Errorf("get %s %d: %w", kind, id, err)
	}
	return decodeRecord(id, props)
}

func (s *SQLiteStore) Create(ctx context.Context, kind string, payload map[string]any) (int64, error) {
	props, err := json.Marshal(clean(payload))
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", kind, err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO records (kind, properties, created_at, updated_at) VALUES (?, ?, ?, ?)",
		kind, string(props), now, now)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", kind, err)
	}
	return res.LastInsertId()
}

// Update merges payload into the stored properties.
func (s *SQLiteStore) Update(ctx context.Context, kind string, id int64, payload map[string]any) error {
	patch, err := json.Marshal(clean(payload))
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE records SET properties = json_patch(properties, ?), updated_at = ? WHERE kind = ? AND id = ?",
		string(patch), time.Now().UTC().Format(time.RFC3339Nano), kind, id)
	if err != nil {
		return fmt.Errorf("update %s %d: %w", kind, id, err)
	}
	return affected(res, kind, id)
}

func (s *SQLiteStore) Delete(ctx context.Context, kind string, id int64, params map[string]any) error {
	cond, args := where(kind, nil)
	cond += " AND id = ?"
	args = append(args, id)
	for k, want := range params {
		if want == nil {
			continue
		}
		p := jsonPath(k)
		cond += " AND " + propertyText + " = ?"
		args = append(args, p, p, text(want))
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE "+cond, args...)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", kind, id, err)
	}
	return affected(res, kind, id)
}

func affected(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, types.ErrNotFound)
	}
	return nil
}

func decodeRecord(id int64, props string) (types.Record, error) {
	var rec types.Record
	if err := json.Unmarshal([]byte(props), &rec); err != nil {
		return types.Record{}, fmt.Errorf("decode record %d: %w", id, err)
	}
	rec.ID = id
	return rec, nil
}
