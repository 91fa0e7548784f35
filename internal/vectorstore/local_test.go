package vectorstore_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepstack/prepd/internal/vectorstore"
)

func newTestLocalStore(t *testing.T) *vectorstore.LocalStore {
	t.Helper()
	store, err := vectorstore.NewLocalStore(vectorstore.LocalConfig{
		Path: filepath.Join(t.TempDir(), "embeddings_storage.json"),
	}, nil)
	require.NoError(t, err)
	return store
}

func testPoint(id string, vector []float32, content string) vectorstore.Point {
	return vectorstore.Point{
		ID:     id,
		Vector: vector,
		Payload: vectorstore.Payload{
			Content: content,
			Title:   "Test Document",
			Source:  "FEMA",
			URL:     "https://example.org/doc",
		},
	}
}

func TestLocalStore_RequiresInitialization(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)

	err := store.Upsert(ctx, []vectorstore.Point{testPoint("p1", []float32{1, 0}, "water")})
	assert.ErrorIs(t, err, vectorstore.ErrNotInitialized)

	_, err = store.Search(ctx, []float32{1, 0}, 5)
	assert.ErrorIs(t, err, vectorstore.ErrNotInitialized)

	_, err = store.Count(ctx)
	assert.ErrorIs(t, err, vectorstore.ErrNotInitialized)

	err = store.Persist(ctx)
	assert.ErrorIs(t, err, vectorstore.ErrNotInitialized)
}

func TestLocalStore_Mode(t *testing.T) {
	store := newTestLocalStore(t)
	assert.Equal(t, vectorstore.ModeLocalFallback, store.Mode())
}

func TestLocalStore_UpsertOverwritesByID(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)
	require.NoError(t, store.CreateCollection(ctx, 2, vectorstore.DistanceCosine))

	require.NoError(t, store.Upsert(ctx, []vectorstore.Point{
		testPoint("p1", []float32{1, 0}, "old content"),
		testPoint("p2", []float32{0, 1}, "other"),
	}))
	require.NoError(t, store.Upsert(ctx, []vectorstore.Point{
		testPoint("p1", []float32{1, 0}, "new content"),
	}))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	results, err := store.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new content", results[0].Content)
}

func TestLocalStore_UpsertEmpty(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)
	require.NoError(t, store.CreateCollection(ctx, 2, vectorstore.DistanceCosine))

	assert.ErrorIs(t, store.Upsert(ctx, nil), vectorstore.ErrEmptyPoints)
}

func TestLocalStore_SearchRankingAndBounds(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)
	require.NoError(t, store.CreateCollection(ctx, 2, vectorstore.DistanceCosine))

	require.NoError(t, store.Upsert(ctx, []vectorstore.Point{
		testPoint("far", []float32{0, 1}, "far"),
		testPoint("near", []float32{1, 0}, "near"),
		testPoint("mid", []float32{1, 1}, "mid"),
	}))

	results, err := store.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3, "never more than the buffer holds")

	assert.Equal(t, "near", results[0].Content)
	assert.Equal(t, "mid", results[1].Content)
	assert.Equal(t, "far", results[2].Content)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score, "scores must be monotonic")
	}

	limited, err := store.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	_, err = store.Search(ctx, []float32{1, 0}, 0)
	assert.ErrorIs(t, err, vectorstore.ErrInvalidConfig)
}

func TestLocalStore_SearchTiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)
	require.NoError(t, store.CreateCollection(ctx, 2, vectorstore.DistanceCosine))

	// Identical vectors score identically; the first inserted wins.
	require.NoError(t, store.Upsert(ctx, []vectorstore.Point{
		testPoint("first", []float32{1, 1}, "first"),
		testPoint("second", []float32{1, 1}, "second"),
		testPoint("third", []float32{2, 2}, "third"), // same direction, same cosine
	}))

	results, err := store.Search(ctx, []float32{1, 1}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].Content)
	assert.Equal(t, "second", results[1].Content)
	assert.Equal(t, "third", results[2].Content)
}

func TestLocalStore_ZeroVectorQuery(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)
	require.NoError(t, store.CreateCollection(ctx, 2, vectorstore.DistanceCosine))

	require.NoError(t, store.Upsert(ctx, []vectorstore.Point{
		testPoint("p1", []float32{1, 0}, "water"),
	}))

	// Zero-norm query must not divide by zero; the score policy is a
	// fixed 0 for every point.
	results, err := store.Search(ctx, []float32{0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, float32(0), results[0].Score)
}

func TestLocalStore_CreateCollectionResets(t *testing.T) {
	ctx := context.Background()
	store := newTestLocalStore(t)
	require.NoError(t, store.CreateCollection(ctx, 2, vectorstore.DistanceCosine))

	require.NoError(t, store.Upsert(ctx, []vectorstore.Point{
		testPoint("p1", []float32{1, 0}, "water"),
	}))

	require.NoError(t, store.CreateCollection(ctx, 2, vectorstore.DistanceCosine))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestLocalStore_PersistAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "embeddings_storage.json")

	store, err := vectorstore.NewLocalStore(vectorstore.LocalConfig{Path: path}, nil)
	require.NoError(t, err)
	require.NoError(t, store.CreateCollection(ctx, 2, vectorstore.DistanceCosine))

	points := []vectorstore.Point{
		testPoint("p1", []float32{1, 0}, "water"),
		testPoint("p2", []float32{0, 1}, "shelter"),
	}
	require.NoError(t, store.Upsert(ctx, points))
	require.NoError(t, store.Persist(ctx))

	// The file is a JSON array whose length equals the upserted count.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var persisted []vectorstore.Point
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Len(t, persisted, 2)

	// A fresh process loads the snapshot and can search immediately.
	reloaded, err := vectorstore.NewLocalStore(vectorstore.LocalConfig{Path: path}, nil)
	require.NoError(t, err)

	count, err := reloaded.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	results, err := reloaded.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "water", results[0].Content)
}
