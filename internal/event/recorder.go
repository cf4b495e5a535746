package event

import (
	"context"

	"github.com/matthewbaird/streamconsole/internal/types"
)

// Publisher sends change events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt types.ChangeEvent)
}

// Recorder publishes change events when a publisher is attached. Recording
// is best-effort and never fails a request.
type Recorder struct {
	bus Publisher
}

// NewRecorder creates a Recorder. A nil publisher turns recording off.
func NewRecorder(p Publisher) *Recorder {
	return &Recorder{bus: p}
}

// Record publishes evt.
func (r *Recorder) Record(ctx context.Context, evt types.ChangeEvent) {
	if r == nil || r.bus == nil {
		return
	}
	r.bus.Publish(ctx, evt)
}
