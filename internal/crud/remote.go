// Package crud drives a paginated, filterable list of one entity kind and
// its create, update and delete calls against a remote collaborator.
package crud

import (
	"context"

	"github.com/matthewbaird/streamconsole/internal/types"
)

// Remote is the collaborator that owns the records.
type Remote interface {
	List(ctx context.Context, kind string, q types.ListQuery) (types.ListResult, error)
	Create(ctx context.Context, kind string, payload map[string]any) (int64, error)
	Update(ctx context.Context, kind string, id int64, payload map[string]any) error
	Delete(ctx context.Context, kind string, id int64, params map[string]any) error
}

// Prompt is what a confirmation surface shows before a delete.
type Prompt struct {
	Kind    string `json:"kind"`
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Confirmer asks the user to affirm a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, p Prompt) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, p Prompt) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, p Prompt) (bool, error) { return f(ctx, p) }

// Level is the severity of a notice.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notice is a transient message for the user.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier shows transient notices.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifyFunc adapts a function to Notifier.
type NotifyFunc func(ctx context.Context, n Notice)

func (f NotifyFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }
