// Package corpus loads the immutable article corpus and its precomputed
// embedding matrix. Row i of the matrix is the embedding of article i.
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"legal-rag/internal/models"
)

// ErrMismatch reports a corpus whose article count differs from the number
// of embedding rows.
var ErrMismatch = errors.New("articles and embeddings row count differ")

type Corpus struct {
	Articles   []models.Article
	Embeddings *Matrix
}

// Load reads both static inputs and checks their positional correspondence.
func Load(articlesPath, embeddingsPath string) (*Corpus, error) {
	articles, err := LoadArticles(articlesPath)
	if err != nil {
		return nil, err
	}
	m, err := LoadEmbeddings(embeddingsPath)
	if err != nil {
		return nil, err
	}
	c, err := New(articles, m)
	if err != nil {
		return nil, err
	}
	log.Info().
		Int("articles", len(articles)).
		Int("dim", m.Dim).
		Msg("Loaded corpus")
	return c, nil
}

// New pairs articles with their embedding rows.
func New(articles []models.Article, m *Matrix) (*Corpus, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: no embedding matrix", ErrMismatch)
	}
	if len(articles) != m.Rows {
		return nil, fmt.Errorf("%w: %d articles, %d rows", ErrMismatch, len(articles), m.Rows)
	}
	return &Corpus{Articles: articles, Embeddings: m}, nil
}

// Text returns the law text of article i.
func (c *Corpus) Text(i int) string {
	return c.Articles[i].LawText
}

func (c *Corpus) Len() int {
	return len(c.Articles)
}

// LoadArticles reads a JSON array of article records.
func LoadArticles(path string) ([]models.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read articles: %w", err)
	}
	var articles []models.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("decode articles %s: %w", path, err)
	}
	for i, a := range articles {
		if a.LawText == "" {
			return nil, fmt.Errorf("article %d has no Law_Text", i)
		}
	}
	return articles, nil
}
