package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
	ProviderOllama = "ollama"

	IndexFlat     = "flat"
	IndexChromem  = "chromem"
	IndexPGVector = "pgvector"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Index     IndexConfig     `yaml:"index"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	EmbedLLM  LLMConfig       `yaml:"embed_llm"`
	ChatLLM   LLMConfig       `yaml:"chat_llm"`
	RAG       RAGConfig       `yaml:"rag"`
	Database  DatabaseConfig  `yaml:"database"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	Mode        string   `yaml:"mode"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type CorpusConfig struct {
	ArticlesPath   string `yaml:"articles_path"`
	EmbeddingsPath string `yaml:"embeddings_path"`
}

type IndexConfig struct {
	Backend    string `yaml:"backend"`
	Collection string `yaml:"collection"`
}

type TokenizerConfig struct {
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// LLMConfig describes one upstream model endpoint. For Azure, BaseURL is the
// resource endpoint and Model the deployment name.
type LLMConfig struct {
	Provider   string `yaml:"provider"`
	BaseURL    string `yaml:"base_url"`
	Key        string `yaml:"key"`
	Model      string `yaml:"model"`
	APIVersion string `yaml:"api_version"`
}

type RAGConfig struct {
	TopK        int     `yaml:"top_k"`
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"top_p"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
	Debug  bool   `yaml:"debug"`
}

// DefaultPath is where LoadConfig looks when no path is given.
const DefaultPath = "./configs/config.yaml"

// LoadConfig reads the YAML file at path, applies .env and environment
// overrides, fills defaults and validates the result. Only a missing file at
// DefaultPath falls back to defaults; any other missing path is an error.
func LoadConfig(path string) (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	if path == "" {
		path = DefaultPath
	}

	// values a YAML file may legitimately set to zero are seeded first
	cfg := Config{RAG: RAGConfig{TopP: 0.95}}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && filepath.Clean(path) == filepath.Clean(DefaultPath):
		log.Warn().Str("path", path).Msg("Config file not found, using defaults")
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	for _, llm := range []*LLMConfig{&cfg.EmbedLLM, &cfg.ChatLLM} {
		if llm.Key != "" {
			continue
		}
		switch llm.Provider {
		case ProviderAzure:
			llm.Key = os.Getenv("AZURE_OPENAI_API_KEY")
		case ProviderOpenAI, "":
			llm.Key = os.Getenv("OPENAI_API_KEY")
		}
	}
	if v := os.Getenv("AZURE_OPENAI_ENDPOINT"); v != "" {
		for _, llm := range []*LLMConfig{&cfg.EmbedLLM, &cfg.ChatLLM} {
			if llm.Provider == ProviderAzure && llm.BaseURL == "" {
				llm.BaseURL = v
			}
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Addr = ":" + v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Corpus.ArticlesPath == "" {
		cfg.Corpus.ArticlesPath = "articles.json"
	}
	if cfg.Corpus.EmbeddingsPath == "" {
		cfg.Corpus.EmbeddingsPath = "law_embeddings.npy"
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = IndexFlat
	}
	if cfg.Index.Collection == "" {
		cfg.Index.Collection = "legal_articles"
	}
	if cfg.Tokenizer.Model == "" {
		cfg.Tokenizer.Model = "text-embedding-3-small"
	}
	if cfg.Tokenizer.MaxTokens == 0 {
		cfg.Tokenizer.MaxTokens = 8191
	}
	if cfg.EmbedLLM.Provider == "" {
		cfg.EmbedLLM.Provider = ProviderOpenAI
	}
	if cfg.EmbedLLM.Model == "" {
		cfg.EmbedLLM.Model = "text-embedding-3-small"
	}
	if cfg.ChatLLM.Provider == "" {
		cfg.ChatLLM.Provider = ProviderOpenAI
	}
	if cfg.ChatLLM.Model == "" {
		cfg.ChatLLM.Model = "gpt-4o-mini"
	}
	for _, llm := range []*LLMConfig{&cfg.EmbedLLM, &cfg.ChatLLM} {
		if llm.Provider == ProviderAzure && llm.APIVersion == "" {
			llm.APIVersion = "2024-05-01-preview"
		}
		if llm.Provider == ProviderOpenAI && llm.BaseURL == "" {
			llm.BaseURL = "https://api.openai.com/v1"
		}
		if llm.Provider == ProviderOllama && llm.BaseURL == "" {
			llm.BaseURL = "http://localhost:11434"
		}
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = 3
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "pgdriver"
	}
}

// Validate reports settings the service cannot start with.
func (c *Config) Validate() error {
	if c.RAG.TopK < 1 {
		return fmt.Errorf("rag.top_k must be positive, got %d", c.RAG.TopK)
	}
	if c.Tokenizer.MaxTokens < 1 {
		return fmt.Errorf("tokenizer.max_tokens must be positive, got %d", c.Tokenizer.MaxTokens)
	}
	switch c.EmbedLLM.Provider {
	case ProviderOpenAI, ProviderAzure, ProviderOllama:
	default:
		return fmt.Errorf("unknown embed_llm.provider %q", c.EmbedLLM.Provider)
	}
	switch c.ChatLLM.Provider {
	case ProviderOpenAI, ProviderAzure:
	default:
		return fmt.Errorf("unknown chat_llm.provider %q", c.ChatLLM.Provider)
	}
	switch c.Index.Backend {
	case IndexFlat, IndexChromem:
	case IndexPGVector:
		if c.Database.URL == "" {
			return errors.New("index backend pgvector requires database.url")
		}
		if d := strings.ToLower(c.Database.Driver); d != "pgdriver" && d != "pq" {
			return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unknown index.backend %q", c.Index.Backend)
	}
	return nil
}
