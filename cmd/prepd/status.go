package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prepstack/prepd/internal/config"
	"github.com/prepstack/prepd/internal/logging"
	"github.com/prepstack/prepd/internal/services"
	"github.com/prepstack/prepd/internal/vectorstore"
)

// statusCmd reports which backend is active and how many points it holds.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vector store backend and point count",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	session, err := services.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	fmt.Printf("Backend:    %s\n", session.Store.Mode())
	fmt.Printf("Collection: %s\n", cfg.Qdrant.Collection)

	count, err := session.Store.Count(ctx)
	if err != nil {
		if errors.Is(err, vectorstore.ErrNotInitialized) {
			fmt.Println("Points:     collection not created yet (run prepd ingest)")
			return nil
		}
		return err
	}
	fmt.Printf("Points:     %d\n", count)

	if session.Model == nil {
		fmt.Println("LLM:        not configured")
	} else {
		fmt.Printf("LLM:        %s\n", cfg.LLM.Model)
	}
	return nil
}
