// Package llmservice streams chat completions from an OpenAI-compatible or
// Azure OpenAI endpoint.
//
// Fragments are relayed as they arrive. Text handed to a caller before an
// upstream failure cannot be withdrawn, so a stream that ends with an error
// leaves the caller with a truncated answer.
package llmservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"legal-rag/internal/config"
)

// Options are the sampling parameters sent with every request. Zero
// MaxTokens and penalties are omitted from the request.
type Options struct {
	Temperature      float64
	TopP             float64
	MaxTokens        int
	FrequencyPenalty float64
	PresencePenalty  float64
}

type Client struct {
	llmConfig  *config.LLMConfig
	opts       Options
	httpClient *http.Client
}

func NewClient(llmConfig *config.LLMConfig, opts Options, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{llmConfig: llmConfig, opts: opts, httpClient: httpClient}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model            string    `json:"model,omitempty"`
	Messages         []message `json:"messages"`
	Temperature      float64   `json:"temperature"`
	TopP             float64   `json:"top_p"`
	MaxTokens        int       `json:"max_tokens,omitempty"`
	FrequencyPenalty float64   `json:"frequency_penalty,omitempty"`
	PresencePenalty  float64   `json:"presence_penalty,omitempty"`
	Stream           bool      `json:"stream"`
}

// Stream opens one streaming chat completion. A transport failure or a
// non-2xx status is returned here, before any fragment exists.
func (c *Client) Stream(ctx context.Context, systemPrompt, userPrompt string) (*Stream, error) {
	payload := chatRequest{
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:      c.opts.Temperature,
		TopP:             c.opts.TopP,
		MaxTokens:        c.opts.MaxTokens,
		FrequencyPenalty: c.opts.FrequencyPenalty,
		PresencePenalty:  c.opts.PresencePenalty,
		Stream:           true,
	}
	if c.llmConfig.Provider != config.ProviderAzure {
		payload.Model = c.llmConfig.Model
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint, err := c.endpoint()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.llmConfig.Provider == config.ProviderAzure {
		req.Header.Set("api-key", c.llmConfig.Key)
	} else {
		req.Header.Set("Authorization", "Bearer "+strings.TrimPrefix(c.llmConfig.Key, "Bearer "))
	}

	log.Debug().Str("url", endpoint).Str("model", c.llmConfig.Model).Msg("Opening chat stream")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("request failed: %d, %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return NewStream(resp.Body), nil
}

func (c *Client) endpoint() (string, error) {
	base := strings.TrimRight(c.llmConfig.BaseURL, "/")
	if c.llmConfig.Provider != config.ProviderAzure {
		return base + "/chat/completions", nil
	}
	u, err := url.Parse(fmt.Sprintf("%s/openai/deployments/%s/chat/completions", base, url.PathEscape(c.llmConfig.Model)))
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("api-version", c.llmConfig.APIVersion)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
