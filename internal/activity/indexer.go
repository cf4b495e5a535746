package activity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/matthewbaird/streamconsole/internal/types"
)

// Labeler names a kind for summaries, e.g. "sink" as "Data sink".
type Labeler func(kind string) string

// Indexer consumes change events and writes one activity entry per event.
// It implements eventbus.Handler.
type Indexer struct {
	store  Store
	label  Labeler
	logger *slog.Logger
	now    func() time.Time
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLabeler sets how kinds are named in summaries.
func WithLabeler(l Labeler) IndexerOption {
	return func(idx *Indexer) { idx.label = l }
}

// WithLogger sets the indexer's logger.
func WithLogger(l *slog.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates a new activity indexer.
func NewIndexer(store Store, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		store:  store,
		label:  func(kind string) string { return kind },
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(idx)
	}
	return idx
}

// HandleEvent indexes evt. Events without a kind or record are dropped.
func (idx *Indexer) HandleEvent(ctx context.Context, evt types.ChangeEvent) error {
	if evt.Kind == "" || evt.RecordID == 0 {
		idx.logger.WarnContext(ctx, "activity: event without record dropped", slog.String("event_id", evt.ID))
		return nil
	}
	at := evt.OccurredAt
	if at.IsZero() {
		at = idx.now()
	}
	e := Entry{
		EventID:    evt.ID,
		Kind:       evt.Kind,
		RecordID:   evt.RecordID,
		Op:         evt.Op,
		OccurredAt: at.UTC(),
		Summary:    fmt.Sprintf("%s %d %s", idx.label(evt.Kind), evt.RecordID, evt.Op),
	}
	if err := idx.store.WriteEntries(ctx, []Entry{e}); err != nil {
		return fmt.Errorf("activity: index %s: %w", evt.ID, err)
	}
	return nil
}
