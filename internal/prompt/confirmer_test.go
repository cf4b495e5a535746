package prompt

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/streamconsole/internal/crud"
)

func regularFile(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "stdin"))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestConfirm_AssumeYes(t *testing.T) {
	c := NewTerminalConfirmer(WithAssumeYes(true), WithInput(regularFile(t)))
	ok, err := c.Confirm(context.Background(), crud.Prompt{Kind: "sink", ID: 1})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConfirm_NonInteractive(t *testing.T) {
	c := NewTerminalConfirmer(WithInput(regularFile(t)))
	assert.False(t, c.IsInteractive())
	ok, err := c.Confirm(context.Background(), crud.Prompt{Kind: "sink", ID: 1})
	assert.ErrorIs(t, err, ErrNonInteractive)
	assert.False(t, ok)
}
