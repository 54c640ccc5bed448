package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sebastien-sq/ragserve/domain/rag"
	"github.com/sebastien-sq/ragserve/internal/database"
)

func newTestStore(t *testing.T) VectorStore {
	t.Helper()
	ctx := context.Background()
	db, err := database.New(ctx, "sqlite:///:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewVectorStore(db)
	require.NoError(t, store.AutoMigrate())
	return store
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float64
		expected float64
	}{
		{"identical", []float64{1, 0}, []float64{1, 0}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"zero vector", []float64{0, 0}, []float64{1, 0}, 0},
		{"length mismatch", []float64{1, 0}, []float64{1, 0, 0}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.expected, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestVectorStore_UpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	records := []rag.Record{
		rag.NewRecord("a", []float64{1, 0, 0}, "alpha text", "a.txt"),
		rag.NewRecord("b", []float64{0, 1, 0}, "beta text", "b.txt"),
		rag.NewRecord("c", []float64{0.9, 0.1, 0}, "gamma text", "c.txt"),
	}
	require.NoError(t, store.Upsert(ctx, records))

	matches, err := store.Query(ctx, []float64{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, "a", matches[0].ID())
	require.Equal(t, "c", matches[1].ID())
	require.Greater(t, matches[0].Similarity(), matches[1].Similarity())
	require.Equal(t, "alpha text", matches[0].Text())
	require.Equal(t, "a.txt", matches[0].Source())
}

func TestVectorStore_UpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Upsert(ctx, []rag.Record{
		rag.NewRecord("a", []float64{1, 0}, "old", "doc.txt"),
	}))
	require.NoError(t, store.Upsert(ctx, []rag.Record{
		rag.NewRecord("a", []float64{0, 1}, "new", "doc.txt"),
	}))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	matches, err := store.Query(ctx, []float64{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "new", matches[0].Text())
	require.InDelta(t, 1.0, matches[0].Similarity(), 1e-9)
}

func TestVectorStore_UpsertManyBatches(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	records := make([]rag.Record, 250)
	for i := range records {
		records[i] = rag.NewRecord(
			fmt.Sprintf("doc-%03d", i),
			[]float64{float64(i), 1},
			fmt.Sprintf("text %d", i),
			"big.txt",
		)
	}
	require.NoError(t, store.Upsert(ctx, records))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(250), count)
}

func TestVectorStore_QueryEmpty(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	matches, err := store.Query(ctx, []float64{1, 0}, 3)
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestVectorStore_Reset(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Upsert(ctx, []rag.Record{
		rag.NewRecord("a", []float64{1, 0}, "text", "doc.txt"),
	}))
	require.NoError(t, store.Reset(ctx))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestFloat64Slice_ScanValue(t *testing.T) {
	original := Float64Slice{0.1, -0.5, 2}

	value, err := original.Value()
	require.NoError(t, err)

	var scanned Float64Slice
	require.NoError(t, scanned.Scan(value))
	require.Equal(t, original, scanned)
}
