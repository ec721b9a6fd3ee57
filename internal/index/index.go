// Package index answers k-nearest-neighbor queries over the corpus
// embeddings. Indexes are built once at startup and never mutated, so every
// implementation is safe for concurrent searches.
package index

import (
	"context"
	"errors"
	"fmt"

	"legal-rag/internal/config"
	"legal-rag/internal/corpus"
)

var (
	ErrDimension = errors.New("query dimension does not match index")
	ErrEmpty     = errors.New("index is empty")
)

// Neighbor is one search hit: the corpus row and its squared L2 distance
// from the query.
type Neighbor struct {
	Index    int
	Distance float32
}

type Index interface {
	// Search returns up to k neighbors ordered nearest first.
	Search(ctx context.Context, query []float32, k int) ([]Neighbor, error)
	Len() int
	Dim() int
}

// New builds the configured index backend over m.
func New(ctx context.Context, cfg *config.Config, m *corpus.Matrix) (Index, error) {
	switch cfg.Index.Backend {
	case config.IndexChromem:
		return NewChromem(ctx, cfg.Index.Collection, m)
	case config.IndexPGVector:
		return NewPGVector(ctx, &cfg.Database, cfg.Index.Collection, m)
	case config.IndexFlat, "":
		return NewFlat(m), nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}
}

func checkQuery(idx Index, query []float32, k int) (int, error) {
	if idx.Len() == 0 {
		return 0, ErrEmpty
	}
	if len(query) != idx.Dim() {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(query), idx.Dim())
	}
	if k < 1 {
		return 0, fmt.Errorf("k must be positive, got %d", k)
	}
	return min(k, idx.Len()), nil
}
