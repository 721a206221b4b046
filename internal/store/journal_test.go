package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bal/internal/ref"
	"github.com/roach88/bal/internal/trait"
)

func TestAppendAssignsIncreasingSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq1, err := s.Append(ctx, createTestPublication("b1", "anAsset", 1, "first"))
	require.NoError(t, err)
	seq2, err := s.Append(ctx, createTestPublication("b1", "anAsset", 2, "second"))
	require.NoError(t, err)

	assert.Greater(t, seq2, seq1)
}

func TestAppendRejectsDuplicateVersion(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, createTestPublication("b1", "anAsset", 1, "first"))
	require.NoError(t, err)
	_, err = s.Append(ctx, createTestPublication("b2", "anAsset", 1, "again"))
	assert.Error(t, err)
}

func TestAppendValidates(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, createTestPublication("b1", "", 1, "x"))
	assert.ErrorContains(t, err, "entity name is empty")

	_, err = s.Append(ctx, createTestPublication("b1", "anAsset", 0, "x"))
	assert.ErrorContains(t, err, "must be positive")
}

func TestReadAllRoundTripsTraits(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	traits := trait.Data{
		"string": trait.Properties{"value": trait.String("🐠 fish")},
		"number": trait.Properties{"value": trait.Int(7)},
		"ratio":  trait.Properties{"value": trait.Float(3)},
		"flag":   trait.Properties{"value": trait.Bool(true)},
		"bare":   trait.Properties{},
	}
	_, err := s.Append(ctx, Publication{
		BatchID: "b1",
		Name:    "another asset",
		Version: 3,
		Access:  ref.CreateRelated,
		Traits:  traits,
	})
	require.NoError(t, err)

	pubs, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, pubs, 1)

	p := pubs[0]
	assert.Equal(t, "b1", p.BatchID)
	assert.Equal(t, "another asset", p.Name)
	assert.Equal(t, 3, p.Version)
	assert.Equal(t, ref.CreateRelated, p.Access)
	assert.True(t, traits.Equal(p.Traits), "got %v", p.Traits)
	assert.True(t, p.Locator().Equal(ref.NewLocator("another asset", ref.CreateRelated).WithVersion(3)))
}

func TestReadAllEmptyJournal(t *testing.T) {
	s := createTestStore(t)

	pubs, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, pubs)
	assert.Empty(t, pubs)
}

func TestReadAllNilTraits(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, Publication{BatchID: "b1", Name: "a", Version: 1, Access: ref.Write})
	require.NoError(t, err)

	pubs, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, pubs, 1)
	assert.Equal(t, trait.Data{}, pubs[0].Traits)
}

func TestReadEntityAndBatch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, p := range []Publication{
		createTestPublication("b1", "a", 1, "a1"),
		createTestPublication("b1", "b", 1, "b1"),
		createTestPublication("b2", "a", 2, "a2"),
	} {
		_, err := s.Append(ctx, p)
		require.NoError(t, err)
	}

	byEntity, err := s.ReadEntity(ctx, "a")
	require.NoError(t, err)
	require.Len(t, byEntity, 2)
	assert.Equal(t, 1, byEntity[0].Version)
	assert.Equal(t, 2, byEntity[1].Version)

	byBatch, err := s.ReadBatch(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, byBatch, 2)
	assert.Equal(t, "a", byBatch[0].Name)
	assert.Equal(t, "b", byBatch[1].Name)

	none, err := s.ReadBatch(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMarshalTraitsSortsKeys(t *testing.T) {
	got, err := marshalTraits(trait.Data{
		"z": trait.Properties{"b": trait.Int(2), "a": trait.Int(1)},
		"a": trait.Properties{},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":{},"z":{"a":1,"b":2}}`, got)

	got, err = marshalTraits(nil)
	require.NoError(t, err)
	assert.Equal(t, `{}`, got)
}

func TestReadAllKeepsUnnormalizedStrings(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// "e" + combining acute and the precomposed "é" are distinct data.
	decomposed := "cafe\u0301"
	traits := trait.Data{
		"cafe\u0301": trait.Properties{"value": trait.String(decomposed)},
		"caf\u00e9":  trait.Properties{"value": trait.String("caf\u00e9")},
	}
	_, err := s.Append(ctx, Publication{BatchID: "b1", Name: "menu", Version: 1, Access: ref.Write, Traits: traits})
	require.NoError(t, err)

	pubs, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, pubs, 1)
	assert.True(t, traits.Equal(pubs[0].Traits), "got %v", pubs[0].Traits)
	assert.Len(t, pubs[0].Traits, 2)

	got, ok := pubs[0].Traits.GetString("cafe\u0301", "value")
	require.True(t, ok)
	assert.Equal(t, decomposed, got)
}
