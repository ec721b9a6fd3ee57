// Package rag retrieves the statutory articles nearest to a question and
// streams a grounded answer built from them.
package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"legal-rag/internal/llmservice"
	"legal-rag/internal/metrics"
)

// ChatStreamer opens one streaming chat completion.
type ChatStreamer interface {
	Stream(ctx context.Context, systemPrompt, userPrompt string) (*llmservice.Stream, error)
}

type Pipeline struct {
	retriever *Retriever
	chat      ChatStreamer
	topK      int
	metrics   *metrics.Metrics
}

// NewPipeline wires a retriever to a chat model. A nil m disables metrics.
func NewPipeline(retriever *Retriever, chat ChatStreamer, topK int, m *metrics.Metrics) *Pipeline {
	if topK < 1 {
		topK = 3
	}
	return &Pipeline{retriever: retriever, chat: chat, topK: topK, metrics: m}
}

// Answer retrieves context for question and opens the answer stream. Errors
// returned here happen before any fragment exists. Failures while reading
// the stream surface from Stream.Recv and are not wrapped.
func (p *Pipeline) Answer(ctx context.Context, question string) (*llmservice.Stream, error) {
	start := time.Now()
	contexts, err := p.retriever.Search(ctx, question, p.topK)
	p.metrics.ObserveStage("retrieve", time.Since(start))
	if err != nil {
		p.metrics.IncError(Kind(err))
		return nil, err
	}

	prompt := BuildPrompt(contexts, question)
	zerolog.Ctx(ctx).Debug().Int("contexts", len(contexts)).Int("prompt_len", len(prompt)).Msg("Built prompt")

	start = time.Now()
	stream, err := p.chat.Stream(ctx, SystemPrompt(), prompt)
	p.metrics.ObserveStage("generate", time.Since(start))
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrGenerationService, err)
		p.metrics.IncError(Kind(err))
		return nil, err
	}
	return stream, nil
}

// Collect runs Answer and drains the stream into one trimmed answer. A
// failure mid-stream discards the partial text.
func (p *Pipeline) Collect(ctx context.Context, question string) (string, error) {
	stream, err := p.Answer(ctx, question)
	if err != nil {
		return "", err
	}
	answer, err := llmservice.Collect(stream)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrGenerationService, err)
		p.metrics.IncError(Kind(err))
		return "", err
	}
	return strings.TrimSpace(answer), nil
}
