// Package query implements the retrieve-then-generate flow for a single
// user question.
package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"github.com/prepstack/prepd/internal/embeddings"
	"github.com/prepstack/prepd/internal/vectorstore"
)

// User-visible answers for the non-generation outcomes. These are
// returned as the answer text, never as errors; an empty success would
// hide what happened from the caller.
const (
	// NoInformationMessage is returned when retrieval finds nothing.
	NoInformationMessage = "No relevant information found in the disaster preparedness database. Please try rephrasing your question or asking about general emergency preparedness topics."

	// UnconfiguredMessage is returned when no LLM credential is set.
	// Retrieved contexts are still included in the answer.
	UnconfiguredMessage = "Groq API key not configured. Set LLM_API_KEY (or GROQ_API_KEY) to enable answer generation."
)

// promptTemplate instructs the model to answer only from the supplied
// context and the trusted publisher families, with an explicit fallback
// phrase when the context does not contain the answer.
const promptTemplate = `You are a Disaster Preparedness & Response Assistant. Use ONLY context from FEMA, Ready.gov, CDC, NOAA, Red Cross, WHO, UNDRR. If the information is not found in the provided context, say "I don't have that information from trusted sources."

Context:
%s

Question: %s

Answer:`

// Config holds query-time parameters.
type Config struct {
	// TopK is the number of contexts retrieved per question.
	// Default: 5
	TopK int `koanf:"top_k"`

	// SnippetLength caps how much of each context's content goes into
	// the prompt. Default: 500
	SnippetLength int `koanf:"snippet_length"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.TopK == 0 {
		c.TopK = 5
	}
	if c.SnippetLength == 0 {
		c.SnippetLength = 500
	}
}

// Answer is the result of one question.
type Answer struct {
	// Text is the generated answer, or one of the fixed messages for
	// the no-results and unconfigured outcomes.
	Text string

	// Contexts are the retrieved contexts in ranked order.
	Contexts []vectorstore.RetrievedContext
}

// Engine answers questions against the indexed corpus.
type Engine struct {
	embedder embeddings.Embedder
	store    vectorstore.Store
	model    llms.Model // nil when no credential is configured
	config   Config
	logger   *zap.Logger
}

// NewEngine creates an Engine. model may be nil; queries then return
// retrieved contexts with a configuration message.
func NewEngine(embedder embeddings.Embedder, store vectorstore.Store, model llms.Model, config Config, logger *zap.Logger) *Engine {
	config.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		embedder: embedder,
		store:    store,
		model:    model,
		config:   config,
		logger:   logger,
	}
}

// Answer embeds the question, retrieves the top-k contexts, and
// conditions the LLM on them.
func (e *Engine) Answer(ctx context.Context, question string) (Answer, error) {
	vector, err := e.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return Answer{}, fmt.Errorf("embedding question: %w", err)
	}

	contexts, err := e.store.Search(ctx, vector, e.config.TopK)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieving contexts: %w", err)
	}

	if len(contexts) == 0 {
		e.logger.Info("no contexts retrieved", zap.String("question", question))
		return Answer{Text: NoInformationMessage}, nil
	}

	if e.model == nil {
		return Answer{Text: UnconfiguredMessage, Contexts: contexts}, nil
	}

	prompt := BuildPrompt(question, contexts, e.config.SnippetLength)

	text, err := llms.GenerateFromSinglePrompt(ctx, e.model, prompt)
	if err != nil {
		return Answer{Contexts: contexts}, fmt.Errorf("generating answer: %w", err)
	}

	return Answer{Text: text, Contexts: contexts}, nil
}

// BuildPrompt renders the fixed prompt template around the assembled
// context block and the raw question.
func BuildPrompt(question string, contexts []vectorstore.RetrievedContext, snippetLength int) string {
	return fmt.Sprintf(promptTemplate, contextBlock(contexts, snippetLength), question)
}

// contextBlock renders the retrieved contexts in ranked order, each as
// source, title, and a bounded content snippet, blank-line separated.
func contextBlock(contexts []vectorstore.RetrievedContext, snippetLength int) string {
	parts := make([]string, len(contexts))
	for i, c := range contexts {
		parts[i] = fmt.Sprintf("Source: %s\nTitle: %s\nContent: %s",
			c.Source, c.Title, snippet(c.Content, snippetLength))
	}
	return strings.Join(parts, "\n\n")
}

// snippet truncates s to at most n characters, rune-safe.
func snippet(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
