// Package scoring computes per-domain competency scores and the global coverage score.
package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/competency-mapper/internal/types"
	"gopkg.in/yaml.v3"
)

// weightTolerance bounds how far the four sub-score weights may drift from 1.
const weightTolerance = 1e-9

// ToolDenominator selects how the tool sub-score is normalized.
type ToolDenominator string

const (
	// DenominatorFixed divides every domain by the same expected tool count.
	DenominatorFixed ToolDenominator = "fixed"
	// DenominatorPerDomain uses an expected tool count per domain.
	DenominatorPerDomain ToolDenominator = "per_domain"
)

// ChecklistAuto scores the narrative when one is present and the checklist otherwise.
const ChecklistAuto types.ChecklistMode = "auto"

// Weights are the shares of the four sub-scores in a domain score.
type Weights struct {
	Semantic   float64 `json:"semantic" yaml:"semantic" validate:"gte=0,lte=1"`
	SelfRating float64 `json:"self_rating" yaml:"self_rating" validate:"gte=0,lte=1"`
	Tools      float64 `json:"tools" yaml:"tools" validate:"gte=0,lte=1"`
	Checklist  float64 `json:"checklist" yaml:"checklist" validate:"gte=0,lte=1"`
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.Semantic + w.SelfRating + w.Tools + w.Checklist
}

// ToolSettings configures the tool-coverage sub-score.
type ToolSettings struct {
	Denominator ToolDenominator `json:"denominator" yaml:"denominator" validate:"oneof=fixed per_domain"`
	// Expected is the fixed denominator, or the fallback for domains missing from PerDomain.
	Expected  float64         `json:"expected" yaml:"expected" validate:"gt=0"`
	PerDomain map[int]float64 `json:"per_domain,omitempty" yaml:"per_domain,omitempty"`
	// Relevance maps a tool to the domains it counts for.
	Relevance map[string][]int `json:"relevance,omitempty" yaml:"relevance,omitempty"`
	// Keywords lists words or phrases that name a tool in free text.
	Keywords map[string][]string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	// DetectInText lets keywords found in free text add to a non-empty selection.
	DetectInText       bool `json:"detect_in_text" yaml:"detect_in_text"`
	CountUnmappedTools bool `json:"count_unmapped_tools" yaml:"count_unmapped_tools"`
}

// ChecklistSettings configures the checklist/experience sub-score.
type ChecklistSettings struct {
	Mode            types.ChecklistMode `json:"mode" yaml:"mode" validate:"oneof=count narrative auto"`
	Denominator     float64             `json:"denominator" yaml:"denominator" validate:"gt=0"`
	MinWords        int                 `json:"min_words" yaml:"min_words" validate:"gte=0"`
	FullLengthWords float64             `json:"full_length_words" yaml:"full_length_words" validate:"gt=0"`
	TopN            int                 `json:"top_n" yaml:"top_n" validate:"gt=0"`
	SemanticShare   float64             `json:"semantic_share" yaml:"semantic_share" validate:"gte=0,lte=1"`
}

// Profile is a versioned scoring configuration.
type Profile struct {
	Name      string            `json:"name" yaml:"name" validate:"required"`
	Version   string            `json:"version" yaml:"version"`
	Weights   Weights           `json:"weights" yaml:"weights"`
	Threshold float64           `json:"threshold" yaml:"threshold" validate:"gte=-1,lte=1"`
	TopN      int               `json:"top_n" yaml:"top_n" validate:"gt=0"`
	Sentinels []string          `json:"sentinels,omitempty" yaml:"sentinels,omitempty"`
	Tools     ToolSettings      `json:"tools" yaml:"tools"`
	Checklist ChecklistSettings `json:"checklist" yaml:"checklist"`
	// DomainWeights override the default weight of 1 in the coverage mean.
	DomainWeights map[int]float64 `json:"domain_weights,omitempty" yaml:"domain_weights,omitempty"`
}

// Validate checks field ranges and the weight-sum invariant.
func (p *Profile) Validate() error {
	validate := validator.New()
	if err := validate.Struct(p); err != nil {
		return &ConfigError{Profile: p.Name, Message: "invalid profile", Cause: err}
	}

	if sum := p.Weights.Sum(); math.Abs(sum-1) > weightTolerance {
		return &ConfigError{Profile: p.Name, Message: fmt.Sprintf("weights sum to %.12f, want 1", sum)}
	}
	for domain, n := range p.Tools.PerDomain {
		if n <= 0 {
			return &ConfigError{Profile: p.Name, Message: fmt.Sprintf("expected tool count for domain %d must be positive", domain)}
		}
	}
	for domain, w := range p.DomainWeights {
		if w <= 0 {
			return &ConfigError{Profile: p.Name, Message: fmt.Sprintf("coverage weight for domain %d must be positive", domain)}
		}
	}
	return nil
}

// ExpectedTools returns the tool denominator of a domain.
func (p *Profile) ExpectedTools(domainID int) float64 {
	if p.Tools.Denominator == DenominatorPerDomain {
		if n, ok := p.Tools.PerDomain[domainID]; ok {
			return n
		}
	}
	return p.Tools.Expected
}

// IsSentinel reports whether item is a "none" answer.
func (p *Profile) IsSentinel(item string) bool {
	item = strings.TrimSpace(item)
	for _, s := range p.Sentinels {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

// DomainWeight returns the coverage weight of a domain.
func (p *Profile) DomainWeight(domainID int) float64 {
	if w, ok := p.DomainWeights[domainID]; ok {
		return w
	}
	return 1.0
}

// ProfileSet is the content of a profiles file: the domain set plus any
// number of scoring profiles.
type ProfileSet struct {
	Domains  []types.Domain `json:"domains" yaml:"domains" validate:"dive"`
	Profiles []Profile      `json:"profiles" yaml:"profiles"`
}

// thresholdSet records which file profiles set a threshold, so an override
// can lower it to 0.
type thresholdSet struct {
	Profiles []struct {
		Threshold *float64 `json:"threshold" yaml:"threshold"`
	} `json:"profiles" yaml:"profiles"`
}

// LoadProfiles reads a YAML or JSON profiles file. Profiles in the file are
// validated and override built-ins of the same name.
func LoadProfiles(path string) (*Registry, []types.Domain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read profiles file: %w", err)
	}

	var unmarshal func([]byte, any) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	case ".json":
		unmarshal = json.Unmarshal
	default:
		return nil, nil, &ConfigError{Message: fmt.Sprintf("unsupported profiles file extension %q", filepath.Ext(path))}
	}

	var set ProfileSet
	var thresholds thresholdSet
	if err := unmarshal(data, &set); err != nil {
		return nil, nil, &ConfigError{Message: "failed to parse profiles file", Cause: err}
	}
	if err := unmarshal(data, &thresholds); err != nil {
		return nil, nil, &ConfigError{Message: "failed to parse profiles file", Cause: err}
	}

	if err := validator.New().Struct(&set); err != nil {
		return nil, nil, &ConfigError{Message: "invalid domain set", Cause: err}
	}

	reg := NewRegistry()
	for i := range set.Profiles {
		p := set.Profiles[i]
		if base, ok := reg.Get(p.Name); ok {
			p = mergeProfile(base, p)
			if thresholds.Profiles[i].Threshold == nil {
				p.Threshold = base.Threshold
			}
		}
		if err := reg.Register(p); err != nil {
			return nil, nil, err
		}
	}
	return reg, set.Domains, nil
}

// mergeProfile fills zero-valued sections of p from base, so a file can tweak
// a built-in profile without repeating it in full.
func mergeProfile(base, p Profile) Profile {
	if p.Version == "" {
		p.Version = base.Version
	}
	if p.Weights == (Weights{}) {
		p.Weights = base.Weights
	}
	if p.TopN == 0 {
		p.TopN = base.TopN
	}
	if p.Sentinels == nil {
		p.Sentinels = base.Sentinels
	}
	if p.Tools.Denominator == "" && p.Tools.Expected == 0 && p.Tools.PerDomain == nil &&
		p.Tools.Relevance == nil && p.Tools.Keywords == nil && !p.Tools.DetectInText && !p.Tools.CountUnmappedTools {
		p.Tools = base.Tools
	}
	if p.Tools.Denominator == "" {
		p.Tools.Denominator = base.Tools.Denominator
	}
	if p.Tools.Expected == 0 {
		p.Tools.Expected = base.Tools.Expected
	}
	if p.Tools.PerDomain == nil {
		p.Tools.PerDomain = base.Tools.PerDomain
	}
	if p.Tools.Relevance == nil {
		p.Tools.Relevance = base.Tools.Relevance
	}
	if p.Tools.Keywords == nil {
		p.Tools.Keywords = base.Tools.Keywords
	}
	p.Checklist = mergeChecklist(base.Checklist, p.Checklist)
	if p.DomainWeights == nil {
		p.DomainWeights = base.DomainWeights
	}
	return p
}

func mergeChecklist(base, c ChecklistSettings) ChecklistSettings {
	if c.Mode == "" {
		c.Mode = base.Mode
	}
	if c.Denominator == 0 {
		c.Denominator = base.Denominator
	}
	if c.MinWords == 0 {
		c.MinWords = base.MinWords
	}
	if c.FullLengthWords == 0 {
		c.FullLengthWords = base.FullLengthWords
	}
	if c.TopN == 0 {
		c.TopN = base.TopN
	}
	if c.SemanticShare == 0 {
		c.SemanticShare = base.SemanticShare
	}
	return c
}

// Registry holds named scoring profiles.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry returns a registry seeded with the built-in profiles.
func NewRegistry() *Registry {
	r := &Registry{profiles: make(map[string]Profile)}
	for _, p := range BuiltinProfiles() {
		r.profiles[p.Name] = p
	}
	return r
}

// Register validates and adds (or replaces) a profile.
func (r *Registry) Register(p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.profiles[p.Name] = p
	return nil
}

// Get returns a profile by name.
func (r *Registry) Get(name string) (Profile, bool) {
	p, ok := r.profiles[name]
	return p, ok
}

// Lookup returns a profile or a ConfigError naming the known profiles.
func (r *Registry) Lookup(name string) (Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, &ConfigError{
			Profile: name,
			Message: fmt.Sprintf("unknown profile (available: %s)", strings.Join(r.Names(), ", ")),
		}
	}
	return p, nil
}

// Names lists profile names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
