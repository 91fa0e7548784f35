// Package main implements the prepd CLI: ingest a scraped disaster
// preparedness corpus into the vector index and ask questions against it.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is the optional YAML config file.
	configPath string
	// version information (set via ldflags during build)
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "prepd",
	Short: "Retrieval-augmented QA over disaster preparedness documents",
	Long: `prepd indexes scraped disaster preparedness documents (FEMA,
Ready.gov, CDC, NOAA, Red Cross, WHO, UNDRR) into a vector store and
answers questions grounded in the retrieved passages.

Configuration comes from environment variables (QDRANT_HOST,
EMBEDDINGS_BASE_URL, LLM_API_KEY, ...) or a YAML file via --config.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(statusCmd)
}
