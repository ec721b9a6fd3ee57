package index

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"legal-rag/internal/corpus"
)

// Chromem keeps the embeddings in an in-memory chromem-go collection.
// chromem ranks by cosine similarity; for unit-length embeddings this is the
// same order as L2, and the reported distance 2-2·cos is the squared L2
// distance between the normalized vectors.
type Chromem struct {
	collection *chromem.Collection
	rows       int
	dim        int
}

func NewChromem(ctx context.Context, name string, m *corpus.Matrix) (*Chromem, error) {
	db := chromem.NewDB()
	c, err := db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}

	if m.Rows > 0 {
		docs := make([]chromem.Document, m.Rows)
		for i := range docs {
			docs[i] = chromem.Document{
				ID:        strconv.Itoa(i),
				Embedding: slices.Clone(m.Row(i)),
			}
		}
		if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return nil, fmt.Errorf("failed to add documents: %v", err)
		}
	}
	log.Debug().Str("collection", name).Int("documents", c.Count()).Msg("Built chromem index")

	return &Chromem{collection: c, rows: m.Rows, dim: m.Dim}, nil
}

func (c *Chromem) Len() int { return c.rows }
func (c *Chromem) Dim() int { return c.dim }

func (c *Chromem) Search(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	k, err := checkQuery(c, query, k)
	if err != nil {
		return nil, err
	}
	// chromem picks arbitrarily among equal similarities, so rank every row
	// and break ties by row order here.
	results, err := c.collection.QueryEmbedding(ctx, query, c.rows, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	out := make([]Neighbor, len(results))
	for i, r := range results {
		row, err := strconv.Atoi(r.ID)
		if err != nil {
			return nil, fmt.Errorf("unexpected document id %q", r.ID)
		}
		out[i] = Neighbor{Index: row, Distance: 2 - 2*r.Similarity}
	}
	slices.SortFunc(out, compareNeighbors)
	return out[:k:k], nil
}
