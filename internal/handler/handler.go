// Package handler exposes the answer pipeline over HTTP.
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"legal-rag/internal/llmservice"
	"legal-rag/internal/metrics"
	"legal-rag/internal/rag"
)

// StreamStatusTrailer is the HTTP trailer that tells a streaming client
// whether the answer it received is complete.
const StreamStatusTrailer = "X-Stream-Status"

const (
	streamComplete = "complete"
	streamError    = "error"
)

// Answerer runs the retrieval-augmented pipeline for one question.
type Answerer interface {
	Answer(ctx context.Context, question string) (*llmservice.Stream, error)
	Collect(ctx context.Context, question string) (string, error)
}

// LegalHandler handles the legal advice endpoints
type LegalHandler struct {
	pipeline Answerer
	metrics  *metrics.Metrics
}

// NewLegalHandler creates a new legal advice handler
func NewLegalHandler(pipeline Answerer, m *metrics.Metrics) *LegalHandler {
	return &LegalHandler{pipeline: pipeline, metrics: m}
}

// QuestionRequest is the request body of both advice endpoints
type QuestionRequest struct {
	Question string `json:"question" binding:"required"`
}

// AnswerResponse is the body of POST /legal-advice
type AnswerResponse struct {
	Answer string `json:"answer"`
}

// AdviceStream handles POST /legal-advice-stream
//
// Failures before the first fragment become a JSON error. After that the
// status line is already sent, so a failure only ends the body early and
// sets the X-Stream-Status trailer to "error".
func (h *LegalHandler) AdviceStream(c *gin.Context) {
	var req QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	ctx := c.Request.Context()
	logger := zerolog.Ctx(ctx)

	stream, err := h.pipeline.Answer(ctx, req.Question)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer stream.Close()

	first, err := stream.Recv()
	if err != nil && !errors.Is(err, io.EOF) {
		err = fmt.Errorf("%w: %w", rag.ErrGenerationService, err)
		h.metrics.IncError(rag.Kind(err))
		h.fail(c, err)
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Header("Trailer", StreamStatusTrailer)
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()

	status := streamComplete
	if err == nil {
		status = h.relay(c, stream, first)
	}
	c.Writer.Header().Set(StreamStatusTrailer, status)
	logger.Info().Str("stream_status", status).Msg("Answer stream finished")
}

// relay writes frag and every following fragment, flushing each one.
func (h *LegalHandler) relay(c *gin.Context, stream *llmservice.Stream, frag string) string {
	ctx := c.Request.Context()
	logger := zerolog.Ctx(ctx)
	for {
		if _, err := c.Writer.WriteString(frag); err != nil {
			logger.Warn().Err(err).Msg("Error writing fragment")
			return streamError
		}
		c.Writer.Flush()
		h.metrics.IncFragments()

		var err error
		frag, err = stream.Recv()
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return streamComplete
		case ctx.Err() != nil:
			logger.Info().Msg("Client disconnected, closing answer stream")
			return streamError
		default:
			err = fmt.Errorf("%w: %w", rag.ErrGenerationService, err)
			h.metrics.IncError(rag.Kind(err))
			logger.Error().Err(err).Msg("Answer stream failed mid-response")
			return streamError
		}
	}
}

// Advice handles POST /legal-advice
func (h *LegalHandler) Advice(c *gin.Context) {
	var req QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	answer, err := h.pipeline.Collect(c.Request.Context(), req.Question)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, AnswerResponse{Answer: answer})
}

// Health handles GET /health
func (h *LegalHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *LegalHandler) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	level := zerolog.ErrorLevel
	if status < http.StatusInternalServerError {
		level = zerolog.WarnLevel
	}
	zerolog.Ctx(c.Request.Context()).WithLevel(level).
		Err(err).
		Str("kind", rag.Kind(err)).
		Int("status", status).
		Msg("Error answering question")
	c.JSON(status, gin.H{"detail": err.Error()})
}

// StatusFor maps a pipeline failure to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, rag.ErrQueryTooLong):
		return http.StatusBadRequest
	case errors.Is(err, rag.ErrEmbeddingService), errors.Is(err, rag.ErrGenerationService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
