// Package store is the reference backend behind the manager API: records of
// every catalog kind kept in memory or in SQLite.
package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/matthewbaird/streamconsole/internal/types"
)

// KeywordFilter is the free-text filter matched against every string value.
const KeywordFilter = "keyword"

// Store reads and writes records of any kind.
type Store interface {
	List(ctx context.Context, kind string, q types.ListQuery) (types.ListResult, error)
	Get(ctx context.Context, kind string, id int64) (types.Record, error)
	Create(ctx context.Context, kind string, payload map[string]any) (int64, error)
	Update(ctx context.Context, kind string, id int64, payload map[string]any) error
	// Delete removes id. Every param must equal the stored value, otherwise
	// the record counts as missing.
	Delete(ctx context.Context, kind string, id int64, params map[string]any) error
}

// text renders a stored or filter value for comparison.
func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// matches applies the keyword and equality filters of a list query.
func matches(values map[string]any, filters map[string]any) bool {
	for k, want := range filters {
		if want == nil || text(want) == "" {
			continue
		}
		if k == KeywordFilter {
			if !hasKeyword(values, text(want)) {
				return false
			}
			continue
		}
		if text(values[k]) != text(want) {
			return false
		}
	}
	return true
}

func hasKeyword(values map[string]any, keyword string) bool {
	kw := strings.ToLower(keyword)
	for _, v := range values {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), kw) {
			return true
		}
	}
	return false
}

// paramsMatch reports whether every delete param equals the stored value.
func paramsMatch(values map[string]any, params map[string]any) bool {
	for k, want := range params {
		if want == nil {
			continue
		}
		if text(values[k]) != text(want) {
			return false
		}
	}
	return true
}

// less orders two values numerically when both are numbers.
func less(a, b any) bool {
	fa, okA := number(a)
	fb, okB := number(b)
	if okA && okB {
		return fa < fb
	}
	return text(a) < text(b)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// sortRecords orders by q.Sort, then by id descending.
func sortRecords(rows []types.Record, s *types.Sort) {
	sort.SliceStable(rows, func(i, j int) bool {
		if s != nil && s.Field != "" {
			a, b := rows[i].Values[s.Field], rows[j].Values[s.Field]
			if text(a) != text(b) {
				if s.Order == types.SortDesc {
					return less(b, a)
				}
				return less(a, b)
			}
		}
		return rows[i].ID > rows[j].ID
	})
}

// page slices one page out of rows.
func page(rows []types.Record, q types.ListQuery) []types.Record {
	off := q.Offset()
	if off >= len(rows) {
		return []types.Record{}
	}
	end := off + q.Normalize().PageSize
	if end > len(rows) {
		end = len(rows)
	}
	return rows[off:end]
}

// clean drops the identity from a payload before it is stored.
func clean(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if k == "id" {
			continue
		}
		out[k] = v
	}
	return out
}
