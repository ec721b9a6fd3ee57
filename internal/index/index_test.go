package index

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legal-rag/internal/config"
	"legal-rag/internal/corpus"
)

// unitCorpus places five unit vectors on a circle so that a query at angle 0
// ranks rows 2, 0, 4, 1, 3.
func unitCorpus(t *testing.T) *corpus.Matrix {
	t.Helper()
	angles := []float64{0.3, 1.2, 0.1, 2.5, 0.6}
	rows := make([][]float32, len(angles))
	for i, a := range angles {
		rows[i] = []float32{float32(math.Cos(a)), float32(math.Sin(a))}
	}
	m, err := corpus.NewMatrix(rows)
	require.NoError(t, err)
	return m
}

func indexes(t *testing.T) map[string]Index {
	t.Helper()
	m := unitCorpus(t)
	ch, err := NewChromem(context.Background(), "test", m)
	require.NoError(t, err)
	return map[string]Index{"flat": NewFlat(m), "chromem": ch}
}

func neighborIDs(ns []Neighbor) []int {
	ids := make([]int, len(ns))
	for i, n := range ns {
		ids[i] = n.Index
	}
	return ids
}

func TestSearchOrder(t *testing.T) {
	for name, idx := range indexes(t) {
		t.Run(name, func(t *testing.T) {
			got, err := idx.Search(context.Background(), []float32{1, 0}, 3)
			require.NoError(t, err)
			assert.Equal(t, []int{2, 0, 4}, neighborIDs(got))
			for i := 1; i < len(got); i++ {
				assert.LessOrEqual(t, got[i-1].Distance, got[i].Distance)
			}
		})
	}
}

func TestSearchDistanceIsSquaredL2(t *testing.T) {
	for name, idx := range indexes(t) {
		t.Run(name, func(t *testing.T) {
			got, err := idx.Search(context.Background(), []float32{1, 0}, 1)
			require.NoError(t, err)
			want := 2 - 2*math.Cos(0.1)
			assert.InDelta(t, want, float64(got[0].Distance), 1e-5)
		})
	}
}

func TestSearchClampsK(t *testing.T) {
	for name, idx := range indexes(t) {
		t.Run(name, func(t *testing.T) {
			got, err := idx.Search(context.Background(), []float32{1, 0}, 50)
			require.NoError(t, err)
			assert.Equal(t, []int{2, 0, 4, 1, 3}, neighborIDs(got))
		})
	}
}

func TestSearchIsIdempotent(t *testing.T) {
	for name, idx := range indexes(t) {
		t.Run(name, func(t *testing.T) {
			q := []float32{0.6, 0.8}
			first, err := idx.Search(context.Background(), q, 4)
			require.NoError(t, err)

			var wg sync.WaitGroup
			for range 8 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					again, err := idx.Search(context.Background(), q, 4)
					assert.NoError(t, err)
					assert.Equal(t, first, again)
				}()
			}
			wg.Wait()
		})
	}
}

func TestSearchRejectsBadQuery(t *testing.T) {
	for name, idx := range indexes(t) {
		t.Run(name, func(t *testing.T) {
			_, err := idx.Search(context.Background(), []float32{1, 0, 0}, 3)
			assert.ErrorIs(t, err, ErrDimension)

			_, err = idx.Search(context.Background(), []float32{1, 0}, 0)
			assert.Error(t, err)
		})
	}
}

func TestFlatEmpty(t *testing.T) {
	_, err := NewFlat(&corpus.Matrix{}).Search(context.Background(), []float32{1}, 1)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestFlatTiesKeepRowOrder(t *testing.T) {
	m, err := corpus.NewMatrix([][]float32{{1, 0}, {0, 1}, {-1, 0}, {0, -1}})
	require.NoError(t, err)

	got, err := NewFlat(m).Search(context.Background(), []float32{0, 0}, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, neighborIDs(got))
}

// Repealed articles can share one text and so one embedding.
func TestSearchTiesKeepRowOrder(t *testing.T) {
	rows := make([][]float32, 40)
	for i := range rows {
		rows[i] = []float32{1, 0}
	}
	rows[7] = []float32{0, 1}
	m, err := corpus.NewMatrix(rows)
	require.NoError(t, err)

	ch, err := NewChromem(context.Background(), "ties", m)
	require.NoError(t, err)

	for name, idx := range map[string]Index{"flat": NewFlat(m), "chromem": ch} {
		t.Run(name, func(t *testing.T) {
			for range 50 {
				got, err := idx.Search(context.Background(), []float32{1, 0}, 3)
				require.NoError(t, err)
				require.Equal(t, []int{0, 1, 2}, neighborIDs(got))
			}

			got, err := idx.Search(context.Background(), []float32{1, 0}, 40)
			require.NoError(t, err)
			assert.Equal(t, 7, got[39].Index)
		})
	}
}

func TestNewSelectsBackend(t *testing.T) {
	m := unitCorpus(t)
	cfg := &config.Config{Index: config.IndexConfig{Backend: config.IndexChromem, Collection: "c"}}

	idx, err := New(context.Background(), cfg, m)
	require.NoError(t, err)
	assert.IsType(t, &Chromem{}, idx)

	cfg.Index.Backend = config.IndexFlat
	idx, err = New(context.Background(), cfg, m)
	require.NoError(t, err)
	assert.IsType(t, &Flat{}, idx)

	cfg.Index.Backend = "annoy"
	_, err = New(context.Background(), cfg, m)
	assert.Error(t, err)
}
