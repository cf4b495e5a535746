package wire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/matthewbaird/streamconsole/internal/session"
	"github.com/matthewbaird/streamconsole/internal/types"
)

// Hub refetches the open pages of every session when a record of their kind
// changes, so a save in one console shows up in all others.
type Hub struct {
	sessions *session.Manager
	logger   *slog.Logger
}

// NewHub returns a hub over sessions.
func NewHub(sessions *session.Manager, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{sessions: sessions, logger: logger}
}

// HandleEvent implements eventbus.Handler.
func (h *Hub) HandleEvent(ctx context.Context, evt types.ChangeEvent) error {
	var errs []error
	n := 0
	for _, s := range h.sessions.All() {
		if s.Console == nil {
			continue
		}
		p, ok := s.Console.Lookup(evt.Kind)
		if !ok {
			continue
		}
		n++
		if err := p.Refetch(ctx); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", s.ID, err))
		}
	}
	h.logger.Debug("wire: pages refetched",
		slog.String("kind", evt.Kind),
		slog.String("op", string(evt.Op)),
		slog.Int("pages", n))
	return errors.Join(errs...)
}
