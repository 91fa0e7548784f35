package embeddings_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepstack/prepd/internal/embeddings"
)

// fakeTEIServer answers /embed with one deterministic vector per input.
func fakeTEIServer(t *testing.T, dim int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embed", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req struct {
			Inputs interface{} `json:"inputs"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var texts []string
		switch v := req.Inputs.(type) {
		case string:
			texts = []string{v}
		case []interface{}:
			for _, it := range v {
				texts = append(texts, it.(string))
			}
		}

		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = make([]float32, dim)
			for j := range vectors[i] {
				vectors[i][j] = float32(len(text)+j) / 100
			}
		}
		require.NoError(t, json.NewEncoder(w).Encode(vectors))
	}))
}

func TestService_EmbedDocuments(t *testing.T) {
	server := fakeTEIServer(t, 4)
	defer server.Close()

	svc, err := embeddings.NewService(embeddings.Config{BaseURL: server.URL, Dimension: 4})
	require.NoError(t, err)

	vectors, err := svc.EmbedDocuments(context.Background(), []string{"water", "shelter kit"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	for _, v := range vectors {
		assert.Len(t, v, 4)
	}
	// Order follows input order: vectors derive from text length here.
	assert.Equal(t, float32(0.05), vectors[0][0])
	assert.Equal(t, float32(0.11), vectors[1][0])
}

func TestService_EmbedDocuments_Deterministic(t *testing.T) {
	server := fakeTEIServer(t, 4)
	defer server.Close()

	svc, err := embeddings.NewService(embeddings.Config{BaseURL: server.URL, Dimension: 4})
	require.NoError(t, err)

	first, err := svc.EmbedDocuments(context.Background(), []string{"store water"})
	require.NoError(t, err)
	second, err := svc.EmbedDocuments(context.Background(), []string{"store water"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestService_EmbedQuery(t *testing.T) {
	server := fakeTEIServer(t, 4)
	defer server.Close()

	svc, err := embeddings.NewService(embeddings.Config{BaseURL: server.URL, Dimension: 4})
	require.NoError(t, err)

	vector, err := svc.EmbedQuery(context.Background(), "how much water")
	require.NoError(t, err)
	assert.Len(t, vector, 4)
}

func TestService_EmptyInput(t *testing.T) {
	svc, err := embeddings.NewService(embeddings.Config{BaseURL: "http://localhost:1"})
	require.NoError(t, err)

	_, err = svc.EmbedDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, embeddings.ErrEmptyInput)

	_, err = svc.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, embeddings.ErrEmptyInput)
}

func TestService_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc, err := embeddings.NewService(embeddings.Config{BaseURL: server.URL, Dimension: 4})
	require.NoError(t, err)

	_, err = svc.EmbedDocuments(context.Background(), []string{"water"})
	assert.ErrorIs(t, err, embeddings.ErrModelUnavailable)
}

func TestService_Unreachable(t *testing.T) {
	server := fakeTEIServer(t, 4)
	server.Close() // connection refused from here on

	svc, err := embeddings.NewService(embeddings.Config{BaseURL: server.URL, Dimension: 4})
	require.NoError(t, err)

	_, err = svc.EmbedQuery(context.Background(), "water")
	assert.ErrorIs(t, err, embeddings.ErrModelUnavailable)
}

func TestService_DimensionMismatch(t *testing.T) {
	server := fakeTEIServer(t, 3)
	defer server.Close()

	svc, err := embeddings.NewService(embeddings.Config{BaseURL: server.URL, Dimension: 4})
	require.NoError(t, err)

	_, err = svc.EmbedDocuments(context.Background(), []string{"water"})
	assert.ErrorIs(t, err, embeddings.ErrDimensionMismatch)
}

func TestService_VectorCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// One vector for two inputs.
		require.NoError(t, json.NewEncoder(w).Encode([][]float32{{0.1, 0.2, 0.3, 0.4}}))
	}))
	defer server.Close()

	svc, err := embeddings.NewService(embeddings.Config{BaseURL: server.URL, Dimension: 4})
	require.NoError(t, err)

	_, err = svc.EmbedDocuments(context.Background(), []string{"water", "shelter"})
	assert.ErrorIs(t, err, embeddings.ErrModelUnavailable)
}

func TestNewService_Validation(t *testing.T) {
	_, err := embeddings.NewService(embeddings.Config{Dimension: -1})
	assert.ErrorIs(t, err, embeddings.ErrInvalidConfig)
}

func TestService_Defaults(t *testing.T) {
	svc, err := embeddings.NewService(embeddings.Config{})
	require.NoError(t, err)
	assert.Equal(t, 384, svc.Dimension())
}
