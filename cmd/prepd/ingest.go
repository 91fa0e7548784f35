package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prepstack/prepd/internal/config"
	"github.com/prepstack/prepd/internal/corpus"
	"github.com/prepstack/prepd/internal/logging"
	"github.com/prepstack/prepd/internal/pipeline"
	"github.com/prepstack/prepd/internal/services"
	"github.com/prepstack/prepd/internal/vectorstore"
)

var ingestDataPath string

// ingestCmd runs a full ingestion: reset the collection, chunk and
// embed every document, upsert, and persist the local buffer when the
// fallback backend is active.
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index the scraped corpus into the vector store",
	Long: `Ingest reads the scraped corpus (a JSON array of documents),
destructively recreates the collection, and indexes every document's
chunks. Run the scraper first to produce the corpus file.

Examples:
  # Ingest the default corpus file
  prepd ingest

  # Ingest a specific file
  prepd ingest --data data/scraped_disaster_prep_data.json`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDataPath, "data", "", "corpus file (default from config)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()

	dataPath := cfg.Corpus.Path
	if ingestDataPath != "" {
		dataPath = ingestDataPath
	}

	docs, err := corpus.Load(dataPath)
	if err != nil {
		return err
	}
	logger.Info("corpus loaded", zap.String("path", dataPath), zap.Int("documents", len(docs)))

	session, err := services.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	// One destructive reset per run; ingestion is full-replace.
	if err := session.Store.CreateCollection(ctx, cfg.Embeddings.Dimension, vectorstore.DistanceCosine); err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	ingestor := pipeline.NewIngestor(session.Chunker, session.Embedder, session.Store, logger)
	stats, err := ingestor.Run(ctx, docs)
	if err != nil {
		return err
	}

	// Buffered fallback writes reach disk only here; skipping this
	// would lose the whole run on process exit.
	if err := session.Store.Persist(ctx); err != nil {
		return fmt.Errorf("persisting local storage: %w", err)
	}

	fmt.Printf("Ingestion complete (%s backend)\n", session.Store.Mode())
	fmt.Printf("Documents processed: %d\n", stats.DocumentsProcessed)
	fmt.Printf("Documents skipped:   %d\n", stats.DocumentsSkipped)
	fmt.Printf("Chunks indexed:      %d\n", stats.ChunksIndexed)
	fmt.Printf("Collection:          %s\n", cfg.Qdrant.Collection)
	return nil
}
