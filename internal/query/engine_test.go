package query_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/prepstack/prepd/internal/query"
	"github.com/prepstack/prepd/internal/vectorstore"
)

// fixedEmbedder maps any text to a constant vector so that search
// ranking is controlled entirely by the stored points.
type fixedEmbedder struct {
	vector []float32
	err    error
}

func (e fixedEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = e.vector
	}
	return vectors, nil
}

func (e fixedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vector, nil
}

// capturingModel records the prompt it received and returns a canned
// completion.
type capturingModel struct {
	prompt   string
	response string
	err      error
	calls    int
}

func (m *capturingModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				m.prompt = text.Text
			}
		}
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.response}},
	}, nil
}

func (m *capturingModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	m.prompt = prompt
	return m.response, nil
}

func seededStore(t *testing.T, points ...vectorstore.Point) vectorstore.Store {
	t.Helper()
	store, err := vectorstore.NewLocalStore(vectorstore.LocalConfig{
		Path: filepath.Join(t.TempDir(), "embeddings_storage.json"),
	}, nil)
	require.NoError(t, err)
	require.NoError(t, store.CreateCollection(context.Background(), 2, vectorstore.DistanceCosine))
	if len(points) > 0 {
		require.NoError(t, store.Upsert(context.Background(), points))
	}
	return store
}

func kitPoint() vectorstore.Point {
	return vectorstore.Point{
		ID:     vectorstore.PointID("https://x/1", 0),
		Vector: []float32{1, 0},
		Payload: vectorstore.Payload{
			Content: "Prepare a kit. Store water. Have a plan.",
			Title:   "Build A Kit",
			Source:  "FEMA",
			URL:     "https://x/1",
		},
	}
}

func TestAnswer_Generates(t *testing.T) {
	model := &capturingModel{response: "Store one gallon of water per person per day."}
	engine := query.NewEngine(fixedEmbedder{vector: []float32{1, 0}}, seededStore(t, kitPoint()), model, query.Config{}, nil)

	answer, err := engine.Answer(context.Background(), "How much water should I store?")
	require.NoError(t, err)

	assert.Equal(t, "Store one gallon of water per person per day.", answer.Text)
	require.Len(t, answer.Contexts, 1)
	assert.Equal(t, "FEMA", answer.Contexts[0].Source)

	// The prompt carries the grounding instructions, the rendered
	// context, and the verbatim question.
	assert.Contains(t, model.prompt, `say "I don't have that information from trusted sources."`)
	assert.Contains(t, model.prompt, "Source: FEMA")
	assert.Contains(t, model.prompt, "Title: Build A Kit")
	assert.Contains(t, model.prompt, "Content: Prepare a kit.")
	assert.Contains(t, model.prompt, "Question: How much water should I store?")
}

func TestAnswer_NoResultsSkipsModel(t *testing.T) {
	model := &capturingModel{response: "should not be used"}
	engine := query.NewEngine(fixedEmbedder{vector: []float32{1, 0}}, seededStore(t), model, query.Config{}, nil)

	answer, err := engine.Answer(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, query.NoInformationMessage, answer.Text)
	assert.Empty(t, answer.Contexts)
	assert.Zero(t, model.calls, "the model must not be called without retrieved context")
}

func TestAnswer_NilModelReturnsContexts(t *testing.T) {
	engine := query.NewEngine(fixedEmbedder{vector: []float32{1, 0}}, seededStore(t, kitPoint()), nil, query.Config{}, nil)

	answer, err := engine.Answer(context.Background(), "How much water?")
	require.NoError(t, err)
	assert.Equal(t, query.UnconfiguredMessage, answer.Text)
	require.Len(t, answer.Contexts, 1)
	assert.Contains(t, answer.Contexts[0].Content, "kit")
}

func TestAnswer_EmbedderError(t *testing.T) {
	engine := query.NewEngine(fixedEmbedder{err: errors.New("model unavailable")}, seededStore(t), nil, query.Config{}, nil)

	_, err := engine.Answer(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding question")
}

func TestAnswer_ModelError(t *testing.T) {
	model := &capturingModel{err: errors.New("rate limited")}
	engine := query.NewEngine(fixedEmbedder{vector: []float32{1, 0}}, seededStore(t, kitPoint()), model, query.Config{}, nil)

	answer, err := engine.Answer(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generating answer")
	assert.Len(t, answer.Contexts, 1, "contexts survive a generation failure")
}

func TestAnswer_RespectsTopK(t *testing.T) {
	points := []vectorstore.Point{kitPoint()}
	for i := 1; i < 4; i++ {
		p := kitPoint()
		p.ID = vectorstore.PointID("https://x/1", i)
		p.Payload.ChunkIndex = i
		points = append(points, p)
	}
	engine := query.NewEngine(fixedEmbedder{vector: []float32{1, 0}}, seededStore(t, points...), nil, query.Config{TopK: 2}, nil)

	answer, err := engine.Answer(context.Background(), "anything")
	require.NoError(t, err)
	assert.Len(t, answer.Contexts, 2)
}

func TestBuildPrompt_TruncatesLongContent(t *testing.T) {
	long := strings.Repeat("w", 600)
	contexts := []vectorstore.RetrievedContext{
		{Content: long, Title: "Water", Source: "Ready.gov"},
	}

	prompt := query.BuildPrompt("How much water?", contexts, 500)

	assert.Contains(t, prompt, strings.Repeat("w", 500)+"...")
	assert.NotContains(t, prompt, strings.Repeat("w", 501))
}

func TestBuildPrompt_JoinsContextsWithBlankLine(t *testing.T) {
	contexts := []vectorstore.RetrievedContext{
		{Content: "first", Title: "A", Source: "FEMA"},
		{Content: "second", Title: "B", Source: "CDC"},
	}

	prompt := query.BuildPrompt("q", contexts, 500)

	assert.Contains(t, prompt, "Content: first\n\nSource: CDC")
}
