package eventbus

import (
	"context"
	"log/slog"

	"github.com/matthewbaird/streamconsole/internal/types"
)

// LogConsumer logs all change events for observability.
type LogConsumer struct {
	logger *slog.Logger
}

func NewLogConsumer(l *slog.Logger) *LogConsumer {
	if l == nil {
		l = slog.Default()
	}
	return &LogConsumer{logger: l}
}

func (c *LogConsumer) HandleEvent(ctx context.Context, evt types.ChangeEvent) error {
	c.logger.InfoContext(ctx, "event: record "+string(evt.Op),
		slog.String("kind", evt.Kind),
		slog.Int64("record_id", evt.RecordID),
		slog.String("event_id", evt.ID))
	return nil
}
