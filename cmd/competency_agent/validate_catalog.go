package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jonathan/competency-mapper/internal/catalog"
	"github.com/jonathan/competency-mapper/internal/config"
	"github.com/jonathan/competency-mapper/internal/observability"
)

var validateCatalogCommand = &cobra.Command{
	Use:   "validate-catalog",
	Short: "Load the competency and job catalogs and report their counts",
	Long: `Loads the configured domain set, competency CSV and job CSV and checks their integrity:
unknown domains, duplicate IDs, dangling job requirements and malformed weights are reported
with the file, row and offending value.`,
	RunE: runValidateCatalogCmd,
}

func init() {
	rootCmd.AddCommand(validateCatalogCommand)
}

func runValidateCatalogCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd, true)
	if err != nil {
		return err
	}
	return validateCatalog(cmd.OutOrStdout(), cfg)
}

func validateCatalog(out io.Writer, cfg config.Config) error {
	_, domains, err := loadProfiles(cfg)
	if err != nil {
		return err
	}
	cat, err := catalog.LoadFiles(domains, cfg.Competencies, cfg.Jobs)
	if err != nil {
		return err
	}
	observability.NewPrinter(out).PrintCatalogStats(cat.Domains(), cat.Stats())
	_, _ = fmt.Fprintf(out, "✓ Catalog is valid\n")
	return nil
}
