package scoring

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonathan/competency-mapper/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinProfiles_Valid(t *testing.T) {
	for _, p := range BuiltinProfiles() {
		t.Run(p.Name, func(t *testing.T) {
			require.NoError(t, p.Validate())
			assert.InDelta(t, 1.0, p.Weights.Sum(), 1e-9)
		})
	}
}

func TestBuiltinProfiles_Weighting(t *testing.T) {
	reg := NewRegistry()

	block, err := reg.Lookup(ProfileBlockV1)
	require.NoError(t, err)
	assert.Equal(t, Weights{Semantic: 0.40, SelfRating: 0.25, Checklist: 0.20, Tools: 0.15}, block.Weights)
	assert.Equal(t, 6.0, block.ExpectedTools(3))
	assert.Equal(t, types.ChecklistCount, block.Checklist.Mode)

	adaptive, err := reg.Lookup(ProfileAdaptiveV2)
	require.NoError(t, err)
	assert.Equal(t, Weights{Semantic: 0.40, SelfRating: 0.30, Tools: 0.20, Checklist: 0.10}, adaptive.Weights)
	assert.Equal(t, 7.0, adaptive.ExpectedTools(1))
	assert.Equal(t, 3.0, adaptive.ExpectedTools(3))
	assert.Equal(t, 5.0, adaptive.ExpectedTools(9), "unknown domains fall back to the default")
	assert.Equal(t, types.ChecklistNarrative, adaptive.Checklist.Mode)
}

func TestBuiltinProfiles_ReturnsCopies(t *testing.T) {
	first := BuiltinProfiles()
	first[1].Tools.PerDomain[1] = 99
	first[0].Sentinels[0] = "mutated"

	second := BuiltinProfiles()
	assert.Equal(t, 7.0, second[1].Tools.PerDomain[1])
	assert.Equal(t, "Aucun", second[0].Sentinels[0])
}

func TestProfile_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Profile)
	}{
		{name: "weights above one", mutate: func(p *Profile) { p.Weights.Semantic = 0.5 }},
		{name: "weights below one", mutate: func(p *Profile) { p.Weights.Tools = 0.1 }},
		{name: "negative weight", mutate: func(p *Profile) { p.Weights.Tools = -0.15; p.Weights.Semantic = 0.7 }},
		{name: "threshold out of range", mutate: func(p *Profile) { p.Threshold = 1.5 }},
		{name: "zero top n", mutate: func(p *Profile) { p.TopN = 0 }},
		{name: "zero tool denominator", mutate: func(p *Profile) { p.Tools.Expected = 0 }},
		{name: "bad denominator mode", mutate: func(p *Profile) { p.Tools.Denominator = "median" }},
		{name: "negative per domain maximum", mutate: func(p *Profile) { p.Tools.PerDomain = map[int]float64{2: -1} }},
		{name: "bad checklist mode", mutate: func(p *Profile) { p.Checklist.Mode = "vibes" }},
		{name: "zero domain weight", mutate: func(p *Profile) { p.DomainWeights = map[int]float64{1: 0} }},
		{name: "missing name", mutate: func(p *Profile) { p.Name = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := BuiltinProfiles()[0]
			tt.mutate(&p)
			err := p.Validate()
			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
		})
	}
}

func TestProfile_WeightSumTolerance(t *testing.T) {
	p := BuiltinProfiles()[0]
	p.Weights = Weights{Semantic: 0.1, SelfRating: 0.2, Tools: 0.3, Checklist: 0.4}
	assert.NoError(t, p.Validate(), "floating point noise stays inside the tolerance")

	p.Weights.Checklist += 1e-6
	assert.Error(t, p.Validate())
}

func TestProfile_IsSentinel(t *testing.T) {
	p := BuiltinProfiles()[0]
	assert.True(t, p.IsSentinel(" aucun "))
	assert.True(t, p.IsSentinel("Aucune de ces tâches"))
	assert.False(t, p.IsSentinel("SQL"))
}

const profilesYAML = `
domains:
  - id: 1
    name: Data
  - id: 2
    name: ML
profiles:
  - name: block-v1
    threshold: 0.45
    domain_weights:
      1: 2
  - name: custom
    version: "7"
    weights: {semantic: 0.5, self_rating: 0.5, tools: 0, checklist: 0}
    threshold: 0.3
    top_n: 5
    tools: {denominator: fixed, expected: 4}
    checklist:
      mode: auto
      denominator: 8
      min_words: 10
      full_length_words: 40
      top_n: 3
      semantic_share: 0.5
`

func TestLoadProfiles_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(profilesYAML), 0644))

	reg, domains, err := LoadProfiles(path)
	require.NoError(t, err)
	assert.Equal(t, []types.Domain{{ID: 1, Name: "Data"}, {ID: 2, Name: "ML"}}, domains)
	assert.Equal(t, []string{"adaptive-v2", "block-v1", "custom"}, reg.Names())

	block, err := reg.Lookup("block-v1")
	require.NoError(t, err)
	assert.Equal(t, 0.45, block.Threshold)
	assert.Equal(t, 2.0, block.DomainWeight(1))
	assert.Equal(t, 1.0, block.DomainWeight(2))
	assert.Equal(t, 0.25, block.Weights.SelfRating, "unset sections come from the built-in")

	custom, err := reg.Lookup("custom")
	require.NoError(t, err)
	assert.Equal(t, ChecklistAuto, custom.Checklist.Mode)
	assert.Equal(t, 4.0, custom.ExpectedTools(1))
}

func TestLoadProfiles_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")
	doc := `{"domains": [{"id": 3, "name": "NLP"}], "profiles": [{"name": "adaptive-v2", "tools": {"per_domain": {"3": 6}}}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	reg, domains, err := LoadProfiles(path)
	require.NoError(t, err)
	require.Len(t, domains, 1)

	p, err := reg.Lookup("adaptive-v2")
	require.NoError(t, err)
	assert.Equal(t, 6.0, p.ExpectedTools(3))
	assert.Equal(t, DenominatorPerDomain, p.Tools.Denominator)
}

func TestLoadProfiles_PartialOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	doc := `
profiles:
  - name: block-v1
    threshold: 0
    checklist:
      mode: narrative
  - name: adaptive-v2
    checklist:
      top_n: 3
    tools:
      detect_in_text: true
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	reg, _, err := LoadProfiles(path)
	require.NoError(t, err)

	block, err := reg.Lookup(ProfileBlockV1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, block.Threshold, "an explicit zero threshold overrides the built-in")
	assert.Equal(t, types.ChecklistNarrative, block.Checklist.Mode)
	assert.Equal(t, 10.0, block.Checklist.Denominator, "unset checklist fields come from the built-in")
	assert.Equal(t, 50.0, block.Checklist.FullLengthWords)
	assert.Equal(t, 5, block.Checklist.TopN)

	adaptive, err := reg.Lookup(ProfileAdaptiveV2)
	require.NoError(t, err)
	assert.Equal(t, 0.3, adaptive.Threshold, "a missing threshold keeps the built-in")
	assert.Equal(t, 3, adaptive.Checklist.TopN)
	assert.Equal(t, types.ChecklistNarrative, adaptive.Checklist.Mode)
	assert.True(t, adaptive.Tools.DetectInText)
	assert.Equal(t, 7.0, adaptive.ExpectedTools(1))
}

func TestLoadProfiles_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}

	tests := []struct {
		name string
		path string
	}{
		{name: "bad weights", path: write("bad.yaml", "profiles:\n  - name: x\n    weights: {semantic: 1, self_rating: 1}\n    top_n: 1\n    tools: {denominator: fixed, expected: 1}\n    checklist: {mode: count, denominator: 1, full_length_words: 1, top_n: 1}\n")},
		{name: "invalid domain", path: write("domains.yaml", "domains:\n  - id: 0\n    name: zero\n")},
		{name: "unparsable", path: write("broken.json", "{")},
		{name: "unsupported extension", path: write("profiles.toml", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := LoadProfiles(tt.path)
			var cfgErr *ConfigError
			assert.True(t, errors.As(err, &cfgErr), "got %v", err)
		})
	}

	_, _, err := LoadProfiles(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestRegistry_Lookup(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Lookup("nope")
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), "block-v1")
}
