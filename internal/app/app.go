// Package app builds the process-wide state once at startup: corpus, index,
// tokenizer, upstream clients and the answer pipeline.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"legal-rag/internal/config"
	"legal-rag/internal/corpus"
	"legal-rag/internal/embedding"
	"legal-rag/internal/handler"
	"legal-rag/internal/index"
	"legal-rag/internal/llmservice"
	"legal-rag/internal/metrics"
	"legal-rag/internal/rag"
	"legal-rag/internal/tokenizer"
)

type App struct {
	Config   *config.Config
	Corpus   *corpus.Corpus
	Index    index.Index
	Pipeline *rag.Pipeline
	Metrics  *metrics.Metrics
}

type options struct {
	corpus     *corpus.Corpus
	counter    tokenizer.Counter
	httpClient *http.Client
	metrics    bool
}

type Option func(*options)

// WithCorpus uses c instead of loading the configured corpus files.
func WithCorpus(c *corpus.Corpus) Option {
	return func(o *options) { o.corpus = c }
}

// WithCounter replaces the tiktoken counter.
func WithCounter(c tokenizer.Counter) Option {
	return func(o *options) { o.counter = c }
}

// WithHTTPClient sets the client used for the embedding and chat services.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithoutMetrics disables Prometheus collection and the /metrics route.
func WithoutMetrics() Option {
	return func(o *options) { o.metrics = false }
}

// Bootstrap loads everything the pipeline needs. Any failure here is fatal
// for the process; nothing is retried.
func Bootstrap(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{metrics: true, httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(&o)
	}

	c := o.corpus
	if c == nil {
		var err error
		c, err = corpus.Load(cfg.Corpus.ArticlesPath, cfg.Corpus.EmbeddingsPath)
		if err != nil {
			return nil, fmt.Errorf("load corpus: %w", err)
		}
	}

	idx, err := index.New(ctx, cfg, c.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("build %s index: %w", cfg.Index.Backend, err)
	}

	counter := o.counter
	if counter == nil {
		tk, err := tokenizer.NewTiktoken(cfg.Tokenizer.Model)
		if err != nil {
			closeIndex(idx)
			return nil, err
		}
		counter = tk
	}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM, o.httpClient)
	if err != nil {
		closeIndex(idx)
		return nil, err
	}

	chat := llmservice.NewClient(&cfg.ChatLLM, llmservice.Options{
		Temperature: cfg.RAG.Temperature,
		TopP:        cfg.RAG.TopP,
	}, o.httpClient)

	var m *metrics.Metrics
	if o.metrics {
		m = metrics.New("")
	}

	retriever := rag.NewRetriever(
		tokenizer.NewGuard(counter, cfg.Tokenizer.MaxTokens),
		embedding.NewClient(embedder),
		idx,
		c,
	)

	log.Info().
		Str("index", cfg.Index.Backend).
		Int("articles", c.Len()).
		Int("top_k", cfg.RAG.TopK).
		Str("chat_model", cfg.ChatLLM.Model).
		Msg("Pipeline ready")

	return &App{
		Config:   cfg,
		Corpus:   c,
		Index:    idx,
		Pipeline: rag.NewPipeline(retriever, chat, cfg.RAG.TopK, m),
		Metrics:  m,
	}, nil
}

// Router returns the HTTP routes served by the app.
func (a *App) Router() *gin.Engine {
	h := handler.NewLegalHandler(a.Pipeline, a.Metrics)
	return handler.NewRouter(h, a.Metrics, a.Config.Server.CORSOrigins)
}

// Close releases index resources such as a database connection.
func (a *App) Close() error {
	if c, ok := a.Index.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func closeIndex(idx index.Index) {
	if c, ok := idx.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing index")
		}
	}
}
