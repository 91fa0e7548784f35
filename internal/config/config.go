// Package config provides configuration loading for prepd.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/prepstack/prepd/internal/logging"
	"github.com/prepstack/prepd/internal/telemetry"
)

// Config is the full prepd configuration.
type Config struct {
	Logging    logging.Config   `koanf:"logging"`
	Qdrant     QdrantConfig     `koanf:"qdrant"`
	Local      LocalConfig      `koanf:"local"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	LLM        LLMConfig        `koanf:"llm"`
	Chunking   ChunkingConfig   `koanf:"chunking"`
	Retrieval  RetrievalConfig  `koanf:"retrieval"`
	Corpus     CorpusConfig     `koanf:"corpus"`
	Telemetry  telemetry.Config `koanf:"telemetry"`
}

// QdrantConfig configures the remote vector store.
type QdrantConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	APIKey     string `koanf:"api_key"`
	UseTLS     bool   `koanf:"use_tls"`
	Collection string `koanf:"collection"`
}

// LocalConfig configures the local fallback store.
type LocalConfig struct {
	Path string `koanf:"path"`
}

// EmbeddingsConfig configures the embedding server client.
type EmbeddingsConfig struct {
	BaseURL   string        `koanf:"base_url"`
	Model     string        `koanf:"model"`
	Dimension int           `koanf:"dimension"`
	Timeout   time.Duration `koanf:"timeout"`
}

// LLMConfig configures the completion client.
type LLMConfig struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"`
}

// ChunkingConfig configures the text chunker.
type ChunkingConfig struct {
	Size              int     `koanf:"size"`
	Overlap           int     `koanf:"overlap"`
	MinLength         int     `koanf:"min_length"`
	BoundaryThreshold float64 `koanf:"boundary_threshold"`
}

// RetrievalConfig configures query-time retrieval.
type RetrievalConfig struct {
	TopK          int `koanf:"top_k"`
	SnippetLength int `koanf:"snippet_length"`
}

// CorpusConfig locates the scraped corpus file.
type CorpusConfig struct {
	Path string `koanf:"path"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	cfg.Logging.ApplyDefaults()

	if cfg.Qdrant.Host == "" {
		cfg.Qdrant.Host = "localhost"
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = 6334
	}
	if cfg.Qdrant.Collection == "" {
		cfg.Qdrant.Collection = "disaster_prep"
	}

	if cfg.Local.Path == "" {
		cfg.Local.Path = "data/embeddings_storage.json"
	}

	if cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = "http://localhost:8080"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if cfg.Embeddings.Dimension == 0 {
		cfg.Embeddings.Dimension = 384
	}

	// The scraper era of this system read GROQ_API_KEY directly; honor
	// it when the structured key is absent.
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("GROQ_API_KEY")
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "llama3-8b-8192"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.groq.com/openai/v1"
	}

	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 500
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 50
	}
	if cfg.Chunking.MinLength == 0 {
		cfg.Chunking.MinLength = 50
	}
	if cfg.Chunking.BoundaryThreshold == 0 {
		cfg.Chunking.BoundaryThreshold = 0.7
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.SnippetLength == 0 {
		cfg.Retrieval.SnippetLength = 500
	}

	if cfg.Corpus.Path == "" {
		cfg.Corpus.Path = "data/scraped_disaster_prep_data.json"
	}

	cfg.Telemetry.ApplyDefaults()
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Qdrant.Port <= 0 || c.Qdrant.Port > 65535 {
		return fmt.Errorf("qdrant: invalid port %d", c.Qdrant.Port)
	}
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking: size must be positive")
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking: overlap must satisfy 0 <= overlap < size")
	}
	if c.Embeddings.Dimension <= 0 {
		return fmt.Errorf("embeddings: dimension must be positive")
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval: top_k must be positive")
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}
