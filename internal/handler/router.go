package handler

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"legal-rag/internal/metrics"
)

// NewRouter registers the service routes. A nil m leaves out /metrics.
func NewRouter(h *LegalHandler, m *metrics.Metrics, origins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(), m.Middleware(), cors.New(corsConfig(origins)))

	r.GET("/health", h.Health)
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}
	r.POST("/legal-advice-stream", h.AdviceStream)
	r.POST("/legal-advice", h.Advice)
	return r
}

// corsConfig echoes any origin back when origins holds "*", so credentialed
// requests keep working.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodHead, http.MethodOptions,
		},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader, StreamStatusTrailer},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
