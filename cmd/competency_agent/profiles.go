package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jonathan/competency-mapper/internal/config"
	"github.com/jonathan/competency-mapper/internal/observability"
	"github.com/jonathan/competency-mapper/internal/scoring"
)

var profilesCommand = &cobra.Command{
	Use:   "profiles",
	Short: "List the scoring profiles and their weights",
	RunE:  runProfilesCmd,
}

var profilesJSON bool

func init() {
	profilesCommand.Flags().BoolVar(&profilesJSON, "json", false, "Print the profiles as JSON")
	rootCmd.AddCommand(profilesCommand)
}

func runProfilesCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd, false)
	if err != nil {
		return err
	}
	return listProfiles(cmd.OutOrStdout(), cfg, profilesJSON)
}

func listProfiles(out io.Writer, cfg config.Config, asJSON bool) error {
	reg, _, err := loadProfiles(cfg)
	if err != nil {
		return err
	}
	if _, err := reg.Lookup(cfg.Profile); err != nil {
		return err
	}

	names := reg.Names()
	profiles := make([]scoring.Profile, 0, len(names))
	for _, name := range names {
		p, _ := reg.Get(name)
		profiles = append(profiles, p)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(profiles)
	}
	observability.NewPrinter(out).PrintProfiles(profiles)
	_, _ = fmt.Fprintf(out, "Active profile: %s\n", cfg.Profile)
	return nil
}
