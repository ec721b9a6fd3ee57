package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legal-rag/internal/config"
	"legal-rag/internal/corpus"
	"legal-rag/internal/handler"
	"legal-rag/internal/models"
	"legal-rag/internal/tokenizer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// upstream fakes both OpenAI endpoints: embeddings always return [1, 0] and
// chat streams the prompt it received back in two fragments.
func upstream(t *testing.T) (*httptest.Server, *string) {
	t.Helper()
	var userPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/embeddings":
			_, _ = w.Write([]byte(`{"data":[{"embedding":[1,0]}]}`))
		case "/chat/completions":
			var req struct {
				Messages []struct {
					Content string `json:"content"`
				} `json:"messages"`
				Temperature float64 `json:"temperature"`
				TopP        float64 `json:"top_p"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Zero(t, req.Temperature)
			assert.Equal(t, 0.95, req.TopP)
			if assert.Len(t, req.Messages, 2) {
				userPrompt = req.Messages[1].Content
			}
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n")
			fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"طبقًا \"}}]}\n\n")
			fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"للمادة\"}}]}\n\n")
			fmt.Fprint(w, "data: [DONE]\n\n")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &userPrompt
}

func testCorpus(t *testing.T) *corpus.Corpus {
	t.Helper()
	m, err := corpus.NewMatrix([][]float32{{0, 1}, {1, 0}, {-1, 0}, {0.8, 0.6}})
	require.NoError(t, err)
	c, err := corpus.New([]models.Article{
		{LawText: "المادة الأولى"},
		{LawText: "المادة الثانية"},
		{LawText: "المادة الثالثة"},
		{LawText: "المادة الرابعة"},
	}, m)
	require.NoError(t, err)
	return c
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{CORSOrigins: []string{"*"}},
		Index:     config.IndexConfig{Backend: config.IndexFlat},
		Tokenizer: config.TokenizerConfig{MaxTokens: 5},
		EmbedLLM:  config.LLMConfig{Provider: config.ProviderOpenAI, BaseURL: baseURL, Key: "sk", Model: "text-embedding-3-small"},
		ChatLLM:   config.LLMConfig{Provider: config.ProviderOpenAI, BaseURL: baseURL, Key: "sk", Model: "gpt-4o-mini"},
		RAG:       config.RAGConfig{TopK: 2, TopP: 0.95},
	}
}

func bootstrap(t *testing.T) (*App, *string) {
	t.Helper()
	srv, prompt := upstream(t)
	words := tokenizer.CounterFunc(func(s string) int { return len(strings.Fields(s)) })
	a, err := Bootstrap(context.Background(), testConfig(srv.URL),
		WithCorpus(testCorpus(t)),
		WithCounter(words),
		WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, prompt
}

func TestStreamEndToEnd(t *testing.T) {
	a, prompt := bootstrap(t)

	req := httptest.NewRequest(http.MethodPost, "/legal-advice-stream", strings.NewReader(`{"question":"ما الحكم؟"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "طبقًا للمادة", rec.Body.String())
	assert.Equal(t, "complete", rec.Result().Trailer.Get(handler.StreamStatusTrailer))
	assert.Equal(t, "المحتوى:\nالمادة الثانية\n\nالمادة الرابعة\n\nالسؤال:\nما الحكم؟", *prompt)
}

func TestCollectEndToEnd(t *testing.T) {
	a, _ := bootstrap(t)

	answer, err := a.Pipeline.Collect(context.Background(), "ما الحكم؟")
	require.NoError(t, err)
	assert.Equal(t, "طبقًا للمادة", answer)
}

func TestQueryTooLongEndToEnd(t *testing.T) {
	a, prompt := bootstrap(t)

	req := httptest.NewRequest(http.MethodPost, "/legal-advice", strings.NewReader(`{"question":"ما حكم القانون في هذه المسألة بالتحديد"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "query too long")
	assert.Empty(t, *prompt)
}

func TestBootstrapFailsOnMissingCorpus(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:0")
	cfg.Corpus = config.CorpusConfig{ArticlesPath: t.TempDir() + "/missing.json", EmbeddingsPath: t.TempDir() + "/missing.npy"}

	_, err := Bootstrap(context.Background(), cfg, WithCounter(tokenizer.CounterFunc(func(string) int { return 0 })))
	assert.ErrorContains(t, err, "load corpus")
}

func TestCloseWithoutCloser(t *testing.T) {
	a, _ := bootstrap(t)
	assert.NoError(t, a.Close())
	assert.NotNil(t, a.Metrics)
}
