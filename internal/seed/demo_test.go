package seed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/streamconsole/internal/seed"
	"github.com/matthewbaird/streamconsole/internal/store"
	"github.com/matthewbaird/streamconsole/internal/types"
)

func TestDemo_SeedsEmptyStore(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	n, err := seed.Demo(ctx, st, nil)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	res, err := st.List(ctx, "sink", types.NewListQuery(10, map[string]any{"sinkType": "KAFKA"}))
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "clicks_kafka", res.List[0].Values["sinkName"])

	// a second run creates nothing
	n, err = seed.Demo(ctx, st, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDemo_SkipsPopulatedKinds(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	_, err := st.Create(ctx, "node", map[string]any{"name": "mine", "type": "COS"})
	require.NoError(t, err)

	n, err := seed.Demo(ctx, st, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	res, err := st.List(ctx, "node", types.NewListQuery(10, nil))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
}
