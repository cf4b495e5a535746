// Package activity keeps the change history of every record: one entry per
// committed create, update or delete, newest first.
package activity

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/matthewbaird/streamconsole/internal/types"
)

// QueryOptions controls filtering and pagination for record history queries.
type QueryOptions struct {
	Since  *time.Time       // inclusive lower bound
	Until  *time.Time       // inclusive upper bound
	Ops    []types.ChangeOp // filter to specific operations
	Limit  int              // max results (default: 100, max: 500)
	Cursor string           // opaque cursor from a previous page
}

// RecentOptions controls filtering for the activity feed across records.
type RecentOptions struct {
	Kind  string           // filter to one kind
	Since *time.Time       // inclusive lower bound
	Ops   []types.ChangeOp // filter to specific operations
	Limit int              // max results (default: 20, max: 500)
}

// DefaultQueryOptions returns QueryOptions with sensible defaults.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{Limit: 100}
}

// DefaultRecentOptions returns RecentOptions with sensible defaults.
func DefaultRecentOptions() RecentOptions {
	return RecentOptions{Limit: 20}
}

const maxLimit = 500

func clampLimit(n, def int) int {
	if n <= 0 {
		return def
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

// cursor marks the last entry of a page. Entries sort by time, then by
// event id, both descending.
type cursor struct {
	at      time.Time
	eventID string
}

func (c cursor) String() string {
	return strconv.FormatInt(c.at.UnixNano(), 10) + ":" + c.eventID
}

// after reports whether e sorts after the cursor.
func (c cursor) after(e Entry) bool {
	if e.OccurredAt.Equal(c.at) {
		return e.EventID < c.eventID
	}
	return e.OccurredAt.Before(c.at)
}

func parseCursor(s string) (cursor, error) {
	nanos, id, ok := strings.Cut(s, ":")
	if !ok {
		return cursor{}, fmt.Errorf("activity: malformed cursor %q", s)
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return cursor{}, fmt.Errorf("activity: malformed cursor %q", s)
	}
	return cursor{at: time.Unix(0, n).UTC(), eventID: id}, nil
}

func cursorOf(e Entry) string {
	return cursor{at: e.OccurredAt, eventID: e.EventID}.String()
}

func hasOp(ops []types.ChangeOp, op types.ChangeOp) bool {
	if len(ops) == 0 {
		return true
	}
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}
