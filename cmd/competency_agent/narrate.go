package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/competency-mapper/internal/narrative"
	"github.com/jonathan/competency-mapper/internal/observability"
	"github.com/jonathan/competency-mapper/internal/report"
	"github.com/jonathan/competency-mapper/internal/types"
)

var narrateCommand = &cobra.Command{
	Use:   "narrate",
	Short: "Write the progression plan and professional bio for a report",
	Long: `Builds a digest of a report (coverage, three strongest and three weakest domains,
top recommended job) and asks Gemini for a progression plan and a short bio. Answers are
cached by digest; without an API key, or when the model fails, a canned text is used.`,
	RunE: runNarrateCmd,
}

var (
	narrateReport string
	narrateKind   string
)

func init() {
	narrateCommand.Flags().StringVarP(&narrateReport, "report", "r", "", "Path to a report JSON file")
	narrateCommand.Flags().StringVar(&narrateKind, "kind", "all", "Narrative to produce: plan, bio or all")

	_ = narrateCommand.MarkFlagRequired("report")

	rootCmd.AddCommand(narrateCommand)
}

func runNarrateCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	kinds, err := parseKinds(narrateKind)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(cmd, false)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	r, err := report.ReadFile(narrateReport)
	if err != nil {
		return err
	}

	svc, release, err := newNarrativeService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer release()

	results := narrate(ctx, svc, r, kinds)
	observability.NewPrinter(cmd.OutOrStdout()).PrintNarratives(results)

	if cfg.DatabaseURL != "" {
		database, err := openArchive(ctx, cfg)
		if err != nil {
			log.Warn("report archive unavailable", "error", err)
			return nil
		}
		defer database.Close()
		if err := archiveReport(ctx, database, r, results); err != nil {
			log.Warn("failed to archive narratives", "error", err)
		}
	}
	return nil
}

func parseKinds(raw string) ([]narrative.Kind, error) {
	switch raw {
	case "", "all":
		return narrative.Kinds, nil
	case string(narrative.KindPlan), string(narrative.KindBio):
		return []narrative.Kind{narrative.Kind(raw)}, nil
	default:
		return nil, fmt.Errorf("unknown narrative kind %q (want plan, bio or all)", raw)
	}
}

func narrate(ctx context.Context, svc *narrative.Service, r *types.ProfileReport, kinds []narrative.Kind) []narrative.Result {
	out := make([]narrative.Result, 0, len(kinds))
	for _, kind := range kinds {
		out = append(out, svc.Narrate(ctx, kind, r))
	}
	return out
}
