package index

import (
	"cmp"
	"context"
	"slices"

	"legal-rag/internal/corpus"
)

// Flat is an exact brute-force index under squared Euclidean distance.
// Equal distances keep row order.
type Flat struct {
	m *corpus.Matrix
}

func NewFlat(m *corpus.Matrix) *Flat {
	return &Flat{m: m}
}

func (f *Flat) Len() int { return f.m.Rows }
func (f *Flat) Dim() int { return f.m.Dim }

func (f *Flat) Search(_ context.Context, query []float32, k int) ([]Neighbor, error) {
	k, err := checkQuery(f, query, k)
	if err != nil {
		return nil, err
	}

	all := make([]Neighbor, f.m.Rows)
	for i := range all {
		all[i] = Neighbor{Index: i, Distance: squaredL2(f.m.Row(i), query)}
	}
	slices.SortFunc(all, compareNeighbors)
	return all[:k:k], nil
}

// compareNeighbors orders by distance, then by row.
func compareNeighbors(a, b Neighbor) int {
	if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
		return c
	}
	return cmp.Compare(a.Index, b.Index)
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
