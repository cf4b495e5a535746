package event_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/streamconsole/internal/event"
	"github.com/matthewbaird/streamconsole/internal/types"
)

type publisher struct{ got []types.ChangeEvent }

func (p *publisher) Publish(_ context.Context, evt types.ChangeEvent) { p.got = append(p.got, evt) }

func TestRecorder(t *testing.T) {
	p := &publisher{}
	r := event.NewRecorder(p)
	r.Record(context.Background(), event.Deleted("sink", 7))

	require.Len(t, p.got, 1)
	assert.Equal(t, types.OpDeleted, p.got[0].Op)
	assert.Equal(t, "sink", p.got[0].Kind)
	assert.Equal(t, int64(7), p.got[0].RecordID)
	assert.NotEmpty(t, p.got[0].ID)
	assert.False(t, p.got[0].OccurredAt.IsZero())

	assert.NotPanics(t, func() {
		event.NewRecorder(nil).Record(context.Background(), event.Created("sink", 1))
		var nilRec *event.Recorder
		nilRec.Record(context.Background(), event.Created("sink", 1))
	})
}

func TestNew_DistinctIDs(t *testing.T) {
	a := event.Created("node", 1)
	b := event.Updated("node", 1)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, types.OpUpdated, b.Op)
}
