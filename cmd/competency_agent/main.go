// Package main provides the competency_agent CLI: profile analysis, catalog
// checks, narratives and the HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "competency_agent",
	Short: "Competency scoring and job matching",
	Long: `competency_agent scores questionnaire submissions against a competency catalog,
aggregates a coverage score and recommends the closest job profiles.

Configuration can be loaded from a JSON or YAML file using --config. Command-line
flags override config file values; GEMINI_API_KEY, DATABASE_URL and
COMPETENCY_PROFILE fill whatever is still unset.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	addGlobalFlags(rootCmd)
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
