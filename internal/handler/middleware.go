package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"legal-rag/internal/helper"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger tags each request with an id and logs it once it is served.
// Handlers reach the tagged logger through zerolog.Ctx.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := helper.RequestID(c.GetHeader(requestIDHeader))
		c.Header(requestIDHeader, id)

		logger := log.With().Str("request_id", id).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))

		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request served")
	}
}
