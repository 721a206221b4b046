package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bal/internal/engine"
	"github.com/roach88/bal/internal/library"
	"github.com/roach88/bal/internal/ref"
	"github.com/roach88/bal/internal/trait"
)

func TestReplayRebuildsPublications(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Record publications against one engine...
	src := engine.New(library.Empty())
	for _, value := range []string{"one", "two"} {
		created, err := src.CreateOrUpdate(ref.NewLocator("asset", ref.Write),
			trait.Data{"string": trait.Properties{"value": trait.String(value)}})
		require.NoError(t, err)
		_, err = s.Append(ctx, Publication{
			BatchID: "b1",
			Name:    created.Name,
			Version: created.VersionTag(),
			Access:  created.Access,
			Traits:  trait.Data{"string": trait.Properties{"value": trait.String(value)}},
		})
		require.NoError(t, err)
	}

	// ...and replay them into a fresh one.
	dst := engine.New(library.Empty())
	res, err := s.Replay(ctx, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Applied)
	assert.Equal(t, int64(2), res.LastSeq)

	resolved, err := dst.Snapshot().Resolve(ref.NewLocator("asset", ref.Read))
	require.NoError(t, err)
	assert.Equal(t, 2, *resolved.Tag)
	v, _ := resolved.Traits.GetString("string", "value")
	assert.Equal(t, "two", v)
}

func TestReplayDetectsDivergence(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Journaled as version 2, but the target library has no prior version
	_, err := s.Append(ctx, createTestPublication("b1", "asset", 2, "x"))
	require.NoError(t, err)

	res, err := s.Replay(ctx, engine.New(library.Empty()))
	var de *DivergenceError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 1, de.Got)
	assert.Equal(t, 0, res.Applied)
	assert.Contains(t, err.Error(), `"asset" was journaled as version 2 but replayed as version 1`)
}

func TestReplayEmptyJournal(t *testing.T) {
	s := createTestStore(t)

	res, err := s.Replay(context.Background(), engine.New(library.Empty()))
	require.NoError(t, err)
	assert.Equal(t, ReplayResult{}, res)
}

func TestReplayHonorsCancellation(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := s.Append(ctx, createTestPublication("b1", "asset", 1, "x"))
	require.NoError(t, err)
	cancel()

	_, err = s.Replay(ctx, engine.New(library.Empty()))
	assert.ErrorIs(t, err, context.Canceled)
}
