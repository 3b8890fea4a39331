package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/competency-mapper/internal/analysis"
	"github.com/jonathan/competency-mapper/internal/catalog"
	"github.com/jonathan/competency-mapper/internal/config"
	"github.com/jonathan/competency-mapper/internal/db"
	"github.com/jonathan/competency-mapper/internal/embedding"
	"github.com/jonathan/competency-mapper/internal/llm"
	"github.com/jonathan/competency-mapper/internal/logging"
	"github.com/jonathan/competency-mapper/internal/narrative"
	"github.com/jonathan/competency-mapper/internal/scoring"
	"github.com/jonathan/competency-mapper/internal/types"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath     string
	competencies   string
	jobs           string
	profile        string
	profilesFile   string
	embeddingModel string
	narrativeModel string
	apiKey         string
	databaseURL    string
	cacheFile      string
	logMode        string
	verbose        bool
}

var flags globalFlags

func addGlobalFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Path to a JSON or YAML config file (values can be overridden by other flags)")
	pf.StringVar(&flags.competencies, "competencies", "", "Competency catalog CSV")
	pf.StringVar(&flags.jobs, "jobs", "", "Job catalog CSV")
	pf.StringVarP(&flags.profile, "profile", "p", "", "Scoring profile name (defaults to COMPETENCY_PROFILE or block-v1)")
	pf.StringVar(&flags.profilesFile, "profiles-file", "", "YAML or JSON file with the domain set and extra scoring profiles")
	pf.StringVar(&flags.embeddingModel, "embedding-model", "", "Gemini embedding model")
	pf.StringVar(&flags.narrativeModel, "narrative-model", "", "Gemini model for narratives (all tiers)")
	pf.StringVar(&flags.apiKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	pf.StringVar(&flags.databaseURL, "db-url", "", "PostgreSQL URL of the report archive (optional, defaults to DATABASE_URL env var)")
	pf.StringVar(&flags.cacheFile, "cache-file", "", "Narrative cache file")
	pf.StringVar(&flags.logMode, "log-mode", "", "Log format: dev or prod")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Print detailed debug information")
}

// resolveConfig merges the config file, changed flags, the environment and
// the defaults, in that order of priority. Catalog paths are only checked
// when the command reads the catalog.
func resolveConfig(cmd *cobra.Command, needCatalog bool) (config.Config, error) {
	// Step 1: Load config file if provided
	var cfg config.Config
	if flags.configPath != "" {
		loaded, err := config.LoadConfig(flags.configPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	// Step 2: Apply CLI overrides (only flags explicitly set)
	f := cmd.Flags()
	for name, field := range map[string]struct {
		dst *string
		val string
	}{
		"competencies":    {&cfg.Competencies, flags.competencies},
		"jobs":            {&cfg.Jobs, flags.jobs},
		"profile":         {&cfg.Profile, flags.profile},
		"profiles-file":   {&cfg.ProfilesFile, flags.profilesFile},
		"embedding-model": {&cfg.EmbeddingModel, flags.embeddingModel},
		"narrative-model": {&cfg.NarrativeModel, flags.narrativeModel},
		"api-key":         {&cfg.APIKey, flags.apiKey},
		"db-url":          {&cfg.DatabaseURL, flags.databaseURL},
		"cache-file":      {&cfg.CacheFile, flags.cacheFile},
		"log-mode":        {&cfg.LogMode, flags.logMode},
	} {
		if f.Changed(name) {
			*field.dst = field.val
		}
	}
	if f.Changed("verbose") {
		cfg.Verbose = flags.verbose
	}

	// Step 3: Environment, then defaults
	cfg.FromEnv()
	cfg = cfg.MergeWithDefaults(config.Defaults())

	// Step 4: Validate
	check := cfg
	if !needCatalog {
		check.Competencies, check.Jobs = "", ""
	}
	if err := check.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*logging.Logger, error) {
	return logging.New(cfg.LogMode, cfg.Verbose)
}

// loadProfiles returns the profile registry and the domain set: the built-in
// ones, extended by the profiles file when configured.
func loadProfiles(cfg config.Config) (*scoring.Registry, []types.Domain, error) {
	if cfg.ProfilesFile == "" {
		return scoring.NewRegistry(), scoring.DefaultDomains(), nil
	}
	reg, domains, err := scoring.LoadProfiles(cfg.ProfilesFile)
	if err != nil {
		return nil, nil, err
	}
	if len(domains) == 0 {
		domains = scoring.DefaultDomains()
	}
	return reg, domains, nil
}

// setup is the process-scoped state shared by analyze and serve.
type setup struct {
	registry *scoring.Registry
	domains  []types.Domain
	catalog  *catalog.Catalog
	profile  scoring.Profile
}

func loadSetup(cfg config.Config) (*setup, error) {
	reg, domains, err := loadProfiles(cfg)
	if err != nil {
		return nil, err
	}
	profile, err := reg.Lookup(cfg.Profile)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.LoadFiles(domains, cfg.Competencies, cfg.Jobs)
	if err != nil {
		return nil, err
	}
	return &setup{registry: reg, domains: domains, catalog: cat, profile: profile}, nil
}

// newEngine builds the embedding index over the catalog with enc.
func (s *setup) newEngine(ctx context.Context, cfg config.Config, enc embedding.Encoder, log *logging.Logger, strict bool) (*analysis.Engine, error) {
	return analysis.NewEngine(ctx, s.catalog, enc, analysis.Options{
		Profile: s.profile,
		TopK:    cfg.TopK,
		Strict:  strict || cfg.Strict,
		Logger:  log,
	})
}

func newEncoder(ctx context.Context, cfg config.Config) (*embedding.GeminiEncoder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
	}
	return embedding.NewGeminiEncoder(ctx, cfg.APIKey, cfg.EmbeddingModel)
}

// newNarrativeService wires the Gemini generator when an API key is set;
// without one every narrative is the canned fallback. The returned func
// releases the client.
func newNarrativeService(ctx context.Context, cfg config.Config, log *logging.Logger) (*narrative.Service, func(), error) {
	cache := narrative.NewCache(cfg.CacheFile)
	if cfg.APIKey == "" {
		log.Warn("no API key, narratives use the fallback text")
		return narrative.NewService(nil, cache, narrative.WithLogger(log)), func() {}, nil
	}
	client, err := llm.NewClient(ctx, llm.DefaultConfig().WithModel(cfg.NarrativeModel), cfg.APIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	svc := narrative.NewService(narrative.NewLLMGenerator(client), cache, narrative.WithLogger(log))
	return svc, func() { _ = client.Close() }, nil
}

// openArchive connects to the report archive when a database URL is set.
// It returns nil, nil otherwise.
func openArchive(ctx context.Context, cfg config.Config) (*db.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil
	}
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}
