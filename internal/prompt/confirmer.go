// Package prompt asks for delete confirmation on the terminal.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/matthewbaird/streamconsole/internal/crud"
)

// ErrNonInteractive is returned when confirmation is needed but stdin is
// not a terminal.
var ErrNonInteractive = errors.New("confirmation required but not running in a terminal (use --yes)")

// TerminalConfirmer implements crud.Confirmer with an interactive prompt.
type TerminalConfirmer struct {
	assumeYes bool
	in        *os.File
	ask       func(ctx context.Context, p crud.Prompt) (bool, error)
}

// Option configures a TerminalConfirmer.
type Option func(*TerminalConfirmer)

// WithAssumeYes affirms every prompt without asking.
func WithAssumeYes(yes bool) Option {
	return func(c *TerminalConfirmer) { c.assumeYes = yes }
}

// WithInput sets the file checked for interactivity. Defaults to stdin.
func WithInput(f *os.File) Option {
	return func(c *TerminalConfirmer) { c.in = f }
}

// NewTerminalConfirmer creates a TerminalConfirmer.
func NewTerminalConfirmer(opts ...Option) *TerminalConfirmer {
	c := &TerminalConfirmer{in: os.Stdin, ask: askHuh}
	for _, o := range opts {
		o(c)
	}
	return c
}

// IsInteractive checks if we're running in an interactive terminal.
func (c *TerminalConfirmer) IsInteractive() bool {
	if c.in == nil {
		return false
	}
	fileInfo, err := c.in.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// Confirm implements crud.Confirmer.
func (c *TerminalConfirmer) Confirm(ctx context.Context, p crud.Prompt) (bool, error) {
	if c.assumeYes {
		return true, nil
	}
	if !c.IsInteractive() {
		return false, ErrNonInteractive
	}
	return c.ask(ctx, p)
}

func askHuh(ctx context.Context, p crud.Prompt) (bool, error) {
	title := p.Title
	if title == "" {
		title = "Delete"
	}
	var ok bool
	confirm := huh.NewConfirm().
		Title(fmt.Sprintf("%s %s #%d?", title, p.Kind, p.ID)).
		Description(p.Message).
		Affirmative("Delete").
		Negative("Cancel").
		Value(&ok)
	err := huh.NewForm(huh.NewGroup(confirm)).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ok, nil
}
