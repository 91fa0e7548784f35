// Package pipeline orchestrates chunking, embedding, and indexing of a
// document corpus.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/prepstack/prepd/internal/chunker"
	"github.com/prepstack/prepd/internal/corpus"
	"github.com/prepstack/prepd/internal/embeddings"
	"github.com/prepstack/prepd/internal/vectorstore"
)

// Stats reports the outcome of one ingestion run.
type Stats struct {
	// DocumentsProcessed counts documents whose chunks were indexed.
	DocumentsProcessed int

	// DocumentsSkipped counts documents dropped for per-document
	// failures (bad record, no usable chunks, embedding failure).
	DocumentsSkipped int

	// ChunksIndexed is the total number of points upserted.
	ChunksIndexed int
}

// Ingestor runs the document-to-index pipeline.
//
// Per-document failures are isolated and logged; store-level write
// failures abort the run. Chunks are pure derived data, regenerated in
// full on every run, so the caller resets the collection once before
// Run and calls Persist on the store once after.
type Ingestor struct {
	chunker  *chunker.Chunker
	embedder embeddings.Embedder
	store    vectorstore.Store
	logger   *zap.Logger
}

// NewIngestor creates an Ingestor.
func NewIngestor(ch *chunker.Chunker, embedder embeddings.Embedder, store vectorstore.Store, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{chunker: ch, embedder: embedder, store: store, logger: logger}
}

// Run ingests documents in input order.
func (in *Ingestor) Run(ctx context.Context, docs []corpus.Document) (Stats, error) {
	var stats Stats

	for i, doc := range docs {
		in.logger.Info("processing document",
			zap.Int("position", i+1),
			zap.Int("total", len(docs)),
			zap.String("url", doc.URL))

		if err := doc.Validate(); err != nil {
			in.logger.Warn("skipping invalid document", zap.Error(err))
			stats.DocumentsSkipped++
			continue
		}

		chunks := in.chunker.Chunk(doc.Content)
		if len(chunks) == 0 {
			in.logger.Warn("no chunks produced, skipping document",
				zap.String("url", doc.URL),
				zap.String("title", doc.Title))
			stats.DocumentsSkipped++
			continue
		}

		texts := make([]string, len(chunks))
		for j, c := range chunks {
			texts[j] = c.Text
		}

		vectors, err := in.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			in.logger.Error("embedding failed, skipping document",
				zap.String("url", doc.URL),
				zap.Error(err))
			stats.DocumentsSkipped++
			continue
		}

		// Must never happen while the chunker and embedder contracts
		// hold; treated as an internal consistency failure for this
		// document only.
		if len(vectors) != len(chunks) {
			in.logger.Error("chunk/embedding count mismatch, skipping document",
				zap.String("url", doc.URL),
				zap.Int("chunks", len(chunks)),
				zap.Int("embeddings", len(vectors)))
			stats.DocumentsSkipped++
			continue
		}

		points := buildPoints(doc, chunks, vectors)
		if err := in.store.Upsert(ctx, points); err != nil {
			// A store write failure after a successful connection is
			// fatal for the run; continuing would silently drop data.
			return stats, fmt.Errorf("uploading chunks for %s: %w", doc.URL, err)
		}

		stats.DocumentsProcessed++
		stats.ChunksIndexed += len(chunks)

		in.logger.Info("document indexed",
			zap.String("url", doc.URL),
			zap.Int("chunks", len(chunks)))
	}

	in.logger.Info("ingestion complete",
		zap.Int("documents_processed", stats.DocumentsProcessed),
		zap.Int("documents_skipped", stats.DocumentsSkipped),
		zap.Int("chunks_indexed", stats.ChunksIndexed))

	return stats, nil
}

// buildPoints converts a document's chunks and vectors into points with
// deterministic ids.
func buildPoints(doc corpus.Document, chunks []chunker.Chunk, vectors [][]float32) []vectorstore.Point {
	points := make([]vectorstore.Point, len(chunks))
	for i, c := range chunks {
		points[i] = vectorstore.Point{
			ID:     vectorstore.PointID(doc.URL, c.Index),
			Vector: vectors[i],
			Payload: vectorstore.Payload{
				Content:     c.Text,
				Title:       doc.Title,
				Source:      doc.Source,
				ScrapedDate: doc.ScrapedDate,
				Type:        doc.Type,
				URL:         doc.URL,
				ChunkIndex:  c.Index,
				TotalChunks: c.Total,
				OriginKey:   vectorstore.OriginKey(doc.URL, c.Index),
			},
		}
	}
	return points
}
