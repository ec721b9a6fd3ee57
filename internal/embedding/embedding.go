package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"legal-rag/internal/config"
	"legal-rag/internal/corpus"
)

// ErrEmptyEmbedding is returned when the service answers without a vector.
var ErrEmptyEmbedding = errors.New("embedding service returned an empty vector")

// NewEmbedder creates a langchaingo embedder for the configured provider.
// Newlines are kept so the query reaches the service exactly as submitted.
func NewEmbedder(llmConfig *config.LLMConfig, httpClient *http.Client) (embeddings.Embedder, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        llmConfig.Provider,
		"base_url":        llmConfig.BaseURL,
		"embedding_model": llmConfig.Model,
	}).Msg("Creating embedder")

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	var client embeddings.EmbedderClient
	switch llmConfig.Provider {
	case config.ProviderOllama:
		llm, err := ollama.New(
			ollama.WithServerURL(llmConfig.BaseURL),
			ollama.WithModel(llmConfig.Model),
			ollama.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("initialize ollama: %w", err)
		}
		client = llm
	case config.ProviderAzure:
		llm, err := openai.New(
			openai.WithAPIType(openai.APITypeAzure),
			openai.WithAPIVersion(llmConfig.APIVersion),
			openai.WithBaseURL(llmConfig.BaseURL),
			openai.WithToken(llmConfig.Key),
			openai.WithModel(llmConfig.Model),
			openai.WithEmbeddingModel(llmConfig.Model),
			openai.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("initialize azure openai: %w", err)
		}
		client = llm
	default:
		llm, err := openai.New(
			openai.WithBaseURL(llmConfig.BaseURL),
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
			openai.WithEmbeddingModel(llmConfig.Model),
			openai.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("initialize openai: %w", err)
		}
		client = llm
	}

	return embeddings.NewEmbedder(client, embeddings.WithStripNewLines(false))
}

// Client turns query text into a single-row matrix in the corpus space.
type Client struct {
	embedder embeddings.Embedder
}

func NewClient(embedder embeddings.Embedder) *Client {
	return &Client{embedder: embedder}
}

// EmbedQuery issues one embedding request and returns the vector as a 1×D
// matrix. Errors are returned as-is; there are no retries.
func (c *Client) EmbedQuery(ctx context.Context, text string) (*corpus.Matrix, error) {
	vec, err := c.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return &corpus.Matrix{Rows: 1, Dim: len(vec), Data: vec}, nil
}
