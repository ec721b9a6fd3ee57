package rag

import "errors"

// Pipeline failures. Stages wrap the underlying cause, so match them with
// errors.Is.
var (
	ErrQueryTooLong      = errors.New("query too long")
	ErrEmbeddingService  = errors.New("embedding service error")
	ErrIndexSearch       = errors.New("index search error")
	ErrGenerationService = errors.New("generation service error")
)

// Kind names the failure class of err for logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrQueryTooLong):
		return "query_too_long"
	case errors.Is(err, ErrEmbeddingService):
		return "embedding_service"
	case errors.Is(err, ErrIndexSearch):
		return "index_search"
	case errors.Is(err, ErrGenerationService):
		return "generation_service"
	default:
		return "internal"
	}
}
