package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/competency-mapper/internal/analysis"
	"github.com/jonathan/competency-mapper/internal/db"
	"github.com/jonathan/competency-mapper/internal/logging"
	"github.com/jonathan/competency-mapper/internal/narrative"
	"github.com/jonathan/competency-mapper/internal/observability"
	"github.com/jonathan/competency-mapper/internal/report"
	"github.com/jonathan/competency-mapper/internal/types"
)

var analyzeCommand = &cobra.Command{
	Use:   "analyze",
	Short: "Score a questionnaire submission and recommend jobs",
	Long: `Reads a submission JSON document ({"schema": "block|question|adaptive", "responses": {...}}),
scores every domain of the catalog, aggregates the coverage score and ranks the jobs.

The report is written to --out, or to <output_dir>/results_<YYYYMMDD_HHMMSS>.json.
With a database URL the report is also archived.`,
	RunE: runAnalyzeCmd,
}

var (
	analyzeSubmission string
	analyzeOut        string
	analyzeNarrative  bool
	analyzeStrict     bool
	analyzeTopK       int
)

func init() {
	analyzeCommand.Flags().StringVarP(&analyzeSubmission, "submission", "s", "", "Path to the submission JSON file")
	analyzeCommand.Flags().StringVarP(&analyzeOut, "out", "o", "", "Report output path")
	analyzeCommand.Flags().BoolVar(&analyzeNarrative, "narrative", false, "Also produce the progression plan and bio")
	analyzeCommand.Flags().BoolVar(&analyzeStrict, "strict", false, "Abort on malformed responses instead of zeroing the domain")
	analyzeCommand.Flags().IntVarP(&analyzeTopK, "top-k", "k", 0, "Number of recommended jobs (default from config)")

	_ = analyzeCommand.MarkFlagRequired("submission")

	rootCmd.AddCommand(analyzeCommand)
}

func runAnalyzeCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()

	// Step 1: Resolve configuration
	cfg, err := resolveConfig(cmd, true)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("top-k") {
		if analyzeTopK <= 0 {
			return fmt.Errorf("--top-k must be positive")
		}
		cfg.TopK = analyzeTopK
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	document, err := os.ReadFile(filepath.Clean(analyzeSubmission))
	if err != nil {
		return fmt.Errorf("failed to read submission: %w", err)
	}

	// Step 2: Load catalog and profile
	st, err := loadSetup(cfg)
	if err != nil {
		return err
	}

	// Step 3: Build the embedding index
	enc, err := newEncoder(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = enc.Close() }()
	engine, err := st.newEngine(ctx, cfg, enc, log, analyzeStrict)
	if err != nil {
		return err
	}

	// Step 4: Analyze and write the report
	path := analyzeOut
	if path == "" {
		path = report.DefaultPath(cfg.OutputDir, time.Now())
	}
	r, err := analyzeToFile(ctx, engine, document, path, log)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Report written to %s\n", path)

	// Step 5: Narratives
	var narratives []narrative.Result
	if analyzeNarrative {
		svc, release, err := newNarrativeService(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer release()
		narratives = svc.NarrateAll(ctx, r)
	}

	// Step 6: Archive (best effort)
	if cfg.DatabaseURL != "" {
		database, err := openArchive(ctx, cfg)
		if err != nil {
			log.Warn("report archive unavailable", "error", err)
		} else {
			defer database.Close()
			if err := archiveReport(ctx, database, r, narratives); err != nil {
				log.Warn("failed to archive report", "error", err)
			} else {
				_, _ = fmt.Fprintf(out, "Report archived as %s\n", r.ID)
			}
		}
	}

	printAnalysis(out, r, narratives, cfg.Verbose)
	return nil
}

// analyzeToFile runs one analysis and writes the report to path. A report
// that fails schema validation is still written; the failure is logged.
func analyzeToFile(ctx context.Context, engine *analysis.Engine, document []byte, path string, log *logging.Logger) (*types.ProfileReport, error) {
	r, err := engine.AnalyzeDocument(ctx, document)
	if err != nil {
		return nil, err
	}
	if err := report.Validate(r); err != nil {
		log.Warn("report does not match its schema", "error", err)
	}
	if err := report.WriteFile(path, r); err != nil {
		return nil, err
	}
	return r, nil
}

// reportArchive is the write side of *db.DB.
type reportArchive interface {
	SaveReport(ctx context.Context, r *types.ProfileReport) error
	SaveNarrative(ctx context.Context, reportID uuid.UUID, kind, source, text string) error
}

var _ reportArchive = (*db.DB)(nil)

// archiveReport stores a report and its narratives.
func archiveReport(ctx context.Context, archive reportArchive, r *types.ProfileReport, narratives []narrative.Result) error {
	if err := archive.SaveReport(ctx, r); err != nil {
		return err
	}
	for _, n := range narratives {
		if err := archive.SaveNarrative(ctx, r.ID, string(n.Kind), string(n.Source), n.Text); err != nil {
			return err
		}
	}
	return nil
}

// printAnalysis prints the short summary, or the boxed report when verbose.
func printAnalysis(out io.Writer, r *types.ProfileReport, narratives []narrative.Result, verbose bool) {
	if verbose {
		p := observability.NewPrinter(out)
		p.PrintReport(r)
		p.PrintNarratives(narratives)
		return
	}
	_, _ = fmt.Fprintf(out, "Coverage: %.1f%%\n", r.CoverageScore*100)
	if job, ok := r.TopJob(); ok {
		_, _ = fmt.Fprintf(out, "Top job:  %s (%.1f%%)\n", job.Title, job.Score)
	}
	if len(r.Warnings) > 0 {
		_, _ = fmt.Fprintf(out, "Warnings: %d (run with --verbose for details)\n", len(r.Warnings))
	}
	for _, n := range narratives {
		_, _ = fmt.Fprintf(out, "\n[%s, %s]\n%s\n", n.Kind, n.Source, n.Text)
	}
}
