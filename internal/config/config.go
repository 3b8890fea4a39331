// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables read by FromEnv.
const (
	EnvAPIKey      = "GEMINI_API_KEY"
	EnvDatabaseURL = "DATABASE_URL"
	EnvProfile     = "COMPETENCY_PROFILE"
)

// Config represents the CLI configuration that can be loaded from a JSON or
// YAML file. All fields are optional; missing values use defaults or must be
// provided via CLI flags.
type Config struct {
	// Catalog
	Competencies string `json:"competencies,omitempty" yaml:"competencies,omitempty"` // Path to the competency CSV
	Jobs         string `json:"jobs,omitempty" yaml:"jobs,omitempty"`                 // Path to the job CSV

	// Scoring
	Profile      string `json:"profile,omitempty" yaml:"profile,omitempty"`             // Scoring profile name
	ProfilesFile string `json:"profiles_file,omitempty" yaml:"profiles_file,omitempty"` // Extra profiles and domain set
	TopK         int    `json:"top_k,omitempty" yaml:"top_k,omitempty" validate:"gte=0"`
	Strict       bool   `json:"strict,omitempty" yaml:"strict,omitempty"` // Abort on malformed responses

	// Models
	EmbeddingModel string `json:"embedding_model,omitempty" yaml:"embedding_model,omitempty"`
	NarrativeModel string `json:"narrative_model,omitempty" yaml:"narrative_model,omitempty"`
	APIKey         string `json:"api_key,omitempty" yaml:"api_key,omitempty"` // Gemini API key

	// Outputs
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty" validate:"omitempty,startswith=postgres"`
	CacheFile   string `json:"cache_file,omitempty" yaml:"cache_file,omitempty"` // Narrative cache
	OutputDir   string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`

	// Behavior
	LogMode string `json:"log_mode,omitempty" yaml:"log_mode,omitempty" validate:"omitempty,oneof=dev prod"`
	Verbose bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"` // Print detailed debug information
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Competencies: "data/competencies.csv",
		Jobs:         "data/jobs.csv",
		Profile:      "block-v1",
		TopK:         3,
		CacheFile:    "data/narrative_cache.json",
		OutputDir:    "responses",
		LogMode:      "dev",
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Required paths are checked after flags are merged in.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	for name, path := range map[string]string{
		"competencies":  c.Competencies,
		"jobs":          c.Jobs,
		"profiles_file": c.ProfilesFile,
	} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("config error: %s file not found: %s", name, path)
		}
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&result.Competencies, defaults.Competencies)
	fill(&result.Jobs, defaults.Jobs)
	fill(&result.Profile, defaults.Profile)
	fill(&result.ProfilesFile, defaults.ProfilesFile)
	fill(&result.EmbeddingModel, defaults.EmbeddingModel)
	fill(&result.NarrativeModel, defaults.NarrativeModel)
	fill(&result.APIKey, defaults.APIKey)
	fill(&result.DatabaseURL, defaults.DatabaseURL)
	fill(&result.CacheFile, defaults.CacheFile)
	fill(&result.OutputDir, defaults.OutputDir)
	fill(&result.LogMode, defaults.LogMode)

	if result.TopK == 0 {
		result.TopK = defaults.TopK
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// FromEnv fills credentials and the profile name from the environment when
// they are not already set.
func (c *Config) FromEnv() {
	if c.APIKey == "" {
		c.APIKey = os.Getenv(EnvAPIKey)
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv(EnvDatabaseURL)
	}
	if c.Profile == "" {
		c.Profile = os.Getenv(EnvProfile)
	}
}
