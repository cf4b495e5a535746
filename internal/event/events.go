// Package event builds record change events and hands them to downstream
// consumers after a mutation commits.
package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/streamconsole/internal/types"
)

func newID() string { return uuid.New().String() }

// New returns a change event for one record.
func New(kind string, op types.ChangeOp, recordID int64) types.ChangeEvent {
	return types.ChangeEvent{
		ID:         newID(),
		Kind:       kind,
		Op:         op,
		RecordID:   recordID,
		OccurredAt: time.Now().UTC(),
	}
}

func Created(kind string, id int64) types.ChangeEvent { return New(kind, types.OpCreated, id) }
func Updated(kind string, id int64) types.ChangeEvent { return New(kind, types.OpUpdated, id) }
func Deleted(kind string, id int64) types.ChangeEvent { return New(kind, types.OpDeleted, id) }
