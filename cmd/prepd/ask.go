package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prepstack/prepd/internal/config"
	"github.com/prepstack/prepd/internal/logging"
	"github.com/prepstack/prepd/internal/query"
	"github.com/prepstack/prepd/internal/services"
)

var (
	askTopK         int
	askShowContexts bool
)

// askCmd answers one question against the indexed corpus.
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a disaster preparedness question",
	Long: `Ask embeds the question, retrieves the most relevant indexed
passages, and generates an answer grounded in them.

Examples:
  prepd ask "How do I prepare for a hurricane?"
  prepd ask -k 3 --show-contexts "What should be in an emergency kit?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of contexts to retrieve (default from config)")
	askCmd.Flags().BoolVar(&askShowContexts, "show-contexts", false, "print the retrieved contexts")
}

func runAsk(cmd *cobra.Command, args []string) error {
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

	engineCfg := query.Config{
		TopK:          cfg.Retrieval.TopK,
		SnippetLength: cfg.Retrieval.SnippetLength,
	}
	if askTopK > 0 {
		engineCfg.TopK = askTopK
	}

	engine := query.NewEngine(session.Embedder, session.Store, session.Model, engineCfg, logger)

	question := strings.Join(args, " ")
	answer, err := engine.Answer(ctx, question)
	if err != nil {
		return err
	}

	fmt.Println(answer.Text)

	if askShowContexts && len(answer.Contexts) > 0 {
		fmt.Printf("\nRetrieved contexts (%d):\n", len(answer.Contexts))
		for i, c := range answer.Contexts {
			fmt.Printf("%d. [%s] %s (score %.3f)\n   %s\n", i+1, c.Source, c.Title, c.Score, c.URL)
		}
	}
	return nil
}
