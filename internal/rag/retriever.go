package rag

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"legal-rag/internal/corpus"
	"legal-rag/internal/index"
)

// LengthGuard rejects texts over the embedding model's token limit.
type LengthGuard interface {
	Check(text string) (int, error)
}

// QueryEmbedder turns a question into a 1×D matrix.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) (*corpus.Matrix, error)
}

// Retriever maps a question to the law texts of its nearest articles.
type Retriever struct {
	guard    LengthGuard
	embedder QueryEmbedder
	index    index.Index
	corpus   *corpus.Corpus
}

func NewRetriever(guard LengthGuard, embedder QueryEmbedder, idx index.Index, c *corpus.Corpus) *Retriever {
	return &Retriever{guard: guard, embedder: embedder, index: idx, corpus: c}
}

// Search returns at most topK law texts, nearest first. An over-long
// question fails with ErrQueryTooLong before the embedding service is
// called.
func (r *Retriever) Search(ctx context.Context, question string, topK int) ([]string, error) {
	tokens, err := r.guard.Check(question)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryTooLong, err)
	}

	q, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingService, err)
	}
	if q.Rows != 1 || len(q.Data) != q.Dim {
		return nil, fmt.Errorf("%w: expected a 1×D query, got %d×%d", ErrEmbeddingService, q.Rows, q.Dim)
	}

	neighbors, err := r.index.Search(ctx, q.Row(0), topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexSearch, err)
	}

	texts := make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		if n.Index < 0 || n.Index >= r.corpus.Len() {
			return nil, fmt.Errorf("%w: neighbor %d outside corpus of %d", ErrIndexSearch, n.Index, r.corpus.Len())
		}
		texts = append(texts, r.corpus.Text(n.Index))
	}

	zerolog.Ctx(ctx).Debug().
		Int("tokens", tokens).
		Interface("neighbors", neighbors).
		Msg("Retrieved articles")
	return texts, nil
}
