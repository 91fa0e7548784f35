// Package llm provides the completion capability via Groq's
// OpenAI-compatible API.
package llm

import (
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrNotConfigured is returned when no API key is set. Querying still
// works without a model; the engine returns retrieved contexts with a
// configuration message instead of a generated answer.
var ErrNotConfigured = errors.New("llm api key not configured")

// Config holds configuration for the completion client.
type Config struct {
	// APIKey is the Groq API key.
	APIKey string `koanf:"api_key"`

	// Model is the chat model used for answer generation.
	// Default: llama3-8b-8192
	Model string `koanf:"model"`

	// BaseURL is the OpenAI-compatible endpoint.
	// Default: https://api.groq.com/openai/v1
	BaseURL string `koanf:"base_url"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Model == "" {
		c.Model = "llama3-8b-8192"
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://api.groq.com/openai/v1"
	}
}

// New creates the completion client, or ErrNotConfigured when no API
// key is present.
func New(config Config) (llms.Model, error) {
	config.ApplyDefaults()
	if config.APIKey == "" {
		return nil, ErrNotConfigured
	}

	model, err := openai.New(
		openai.WithToken(config.APIKey),
		openai.WithModel(config.Model),
		openai.WithBaseURL(config.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("creating completion client: %w", err)
	}
	return model, nil
}
