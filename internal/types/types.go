// Package types provides the value types shared by the console core: records,
// list queries and their results. They cross every package boundary (remote
// client, list controller, modal sessions, row store, reference backend), so
// they carry no behavior beyond construction and copying.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by remote collaborators when an identity no longer
// exists server-side.
var ErrNotFound = errors.New("record not found")

// ErrInvalidIdentity is returned when a record carries both or neither of a
// persisted ID and a synthetic token.
var ErrInvalidIdentity = errors.New("record must carry exactly one identity")

// Record is one entity row. It holds exactly one identity: a persisted ID
// assigned by the remote collaborator, or a synthetic token minted locally
// before any remote identity exists.
type Record struct {
	ID     int64          `json:"id,omitempty"`
	Token  string         `json:"-"`
	Values map[string]any `json:"values"`
}

// Persisted returns a record identified by a remote ID.
func Persisted(id int64, values map[string]any) Record {
	return Record{ID: id, Values: copyValues(values)}
}

// Local returns a record identified by a synthetic token.
func Local(token string, values map[string]any) Record {
	return Record{Token: token, Values: copyValues(values)}
}

// IsPersisted reports whether the record has a remote identity.
func (r Record) IsPersisted() bool {
	return r.ID != 0
}

// Validate checks the single-identity invariant.
func (r Record) Validate() error {
	hasID := r.ID != 0
	hasToken := r.Token != ""
	if hasID == hasToken {
		return fmt.Errorf("%w (id=%d, token=%q)", ErrInvalidIdentity, r.ID, r.Token)
	}
	return nil
}

// WithValues returns a copy of r with values merged over the current ones.
func (r Record) WithValues(values map[string]any) Record {
	merged := copyValues(r.Values)
	for k, v := range values {
		merged[k] = v
	}
	return Record{ID: r.ID, Token: r.Token, Values: merged}
}

// Flat returns the record values with the persisted ID under "id". Synthetic
// tokens are never included.
func (r Record) Flat() map[string]any {
	out := copyValues(r.Values)
	delete(out, "id")
	if r.ID != 0 {
		out["id"] = r.ID
	}
	return out
}

// MarshalJSON writes the record as a flat object, the shape the manager API
// uses for list rows.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Flat())
}

// UnmarshalJSON reads a flat object, lifting "id" into ID.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	dec := json.NewDecoder(bytesReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	r.ID = 0
	r.Token = ""
	if v, ok := raw["id"]; ok {
		id, err := toInt64(v)
		if err != nil {
			return fmt.Errorf("record id: %w", err)
		}
		r.ID = id
		delete(raw, "id")
	}
	for k, v := range raw {
		if n, ok := v.(json.Number); ok {
			raw[k] = numberValue(n)
		}
	}
	r.Values = raw
	return nil
}

// SortOrder is the ordering direction of a list query.
type SortOrder string

const (
	SortAsc  SortOrder = "ascend"
	SortDesc SortOrder = "descend"
)

// Sort is an optional ordering on a record property.
type Sort struct {
	Field string    `json:"field"`
	Order SortOrder `json:"order"`
}

// ListQuery is the immutable request state of a paginated, filterable table.
// Every change produces a new value through one of the With* methods.
type ListQuery struct {
	Filters  map[string]any `json:"filters,omitempty"`
	PageNum  int            `json:"pageNum"`
	PageSize int            `json:"pageSize"`
	Sort     *Sort          `json:"sort,omitempty"`
}

// DefaultPageSize matches the dashboard's default table size.
const DefaultPageSize = 10

// NewListQuery returns the query a page starts with on mount.
func NewListQuery(pageSize int, filters map[string]any) ListQuery {
	return ListQuery{
		Filters:  copyValues(filters),
		PageNum:  1,
		PageSize: pageSize,
	}.Normalize()
}

// Normalize clamps page number and size to valid values.
func (q ListQuery) Normalize() ListQuery {
	if q.PageNum < 1 {
		q.PageNum = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	return q
}

// WithFilters merges filters into the query and resets the page to 1.
// A nil filter value removes the key.
func (q ListQuery) WithFilters(filters map[string]any) ListQuery {
	merged := copyValues(q.Filters)
	for k, v := range filters {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	return ListQuery{
		Filters:  merged,
		PageNum:  1,
		PageSize: q.PageSize,
		Sort:     q.Sort,
	}.Normalize()
}

// WithPage keeps the filters and moves to another page or page size.
func (q ListQuery) WithPage(pageNum, pageSize int) ListQuery {
	return ListQuery{
		Filters:  copyValues(q.Filters),
		PageNum:  pageNum,
		PageSize: pageSize,
		Sort:     q.Sort,
	}.Normalize()
}

// WithSort keeps the filters and page size, orders by s and returns to page 1.
func (q ListQuery) WithSort(s *Sort) ListQuery {
	return ListQuery{
		Filters:  copyValues(q.Filters),
		PageNum:  1,
		PageSize: q.PageSize,
		Sort:     s,
	}.Normalize()
}

// Offset returns the zero-based index of the first row of the page.
func (q ListQuery) Offset() int {
	q = q.Normalize()
	return (q.PageNum - 1) * q.PageSize
}

// ListResult is one page of records plus the total row count.
type ListResult struct {
	List  []Record `json:"list"`
	Total int      `json:"total"`
}

// Pagination is what a table's pagination control renders.
type Pagination struct {
	Current    int `json:"current"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// PaginationFor derives pagination state from a query and its result.
func PaginationFor(q ListQuery, r ListResult) Pagination {
	q = q.Normalize()
	pages := 0
	if r.Total > 0 {
		pages = (r.Total + q.PageSize - 1) / q.PageSize
	}
	return Pagination{
		Current:    q.PageNum,
		PageSize:   q.PageSize,
		Total:      r.Total,
		TotalPages: pages,
	}
}

// ChangeOp names a mutation observed by the reference backend.
type ChangeOp string

const (
	OpCreated ChangeOp = "created"
	OpUpdated ChangeOp = "updated"
	OpDeleted ChangeOp = "deleted"
)

// ChangeEvent describes one committed mutation of a record.
type ChangeEvent struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Op         ChangeOp  `json:"op"`
	RecordID   int64     `json:"record_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func copyValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}
