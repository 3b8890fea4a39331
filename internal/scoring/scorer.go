package scoring

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/jonathan/competency-mapper/internal/embedding"
	"github.com/jonathan/competency-mapper/internal/normalize"
	"github.com/jonathan/competency-mapper/internal/types"
)

// Index is the part of the embedding index the scorer needs.
type Index interface {
	Encode(ctx context.Context, text string) (embedding.Vector, error)
	Similarities(query embedding.Vector, ids []string) []float64
}

// Competencies resolves the competencies of a domain.
type Competencies interface {
	CompetencyIDsIn(domainID int) []string
	Competency(id string) (types.Competency, bool)
}

// Scorer computes domain scores under one profile. It is safe for concurrent
// use; per-submission state lives in a Run.
type Scorer struct {
	profile Profile
	index   Index
	comps   Competencies
	// keywordTools is the keyword table's tools in sorted order
	keywordTools []string
}

// NewScorer validates the profile and returns a Scorer.
func NewScorer(p Profile, index Index, comps Competencies) (*Scorer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if index == nil || comps == nil {
		return nil, fmt.Errorf("scorer requires an index and a competency catalog")
	}

	tools := make([]string, 0, len(p.Tools.Keywords))
	for tool := range p.Tools.Keywords {
		tools = append(tools, tool)
	}
	sort.Strings(tools)

	return &Scorer{profile: p, index: index, comps: comps, keywordTools: tools}, nil
}

// Profile returns the scorer's profile.
func (s *Scorer) Profile() Profile {
	return s.profile
}

// Run scores one submission. Texts are encoded at most once per run.
type Run struct {
	scorer *Scorer
	memo   map[string]embedding.Vector
}

// NewRun starts a scoring run.
func (s *Scorer) NewRun() *Run {
	return &Run{scorer: s, memo: make(map[string]embedding.Vector)}
}

// ScoreDomain computes the four sub-scores and the combined score of one domain.
// An out-of-range rating fails with *normalize.MalformedResponseError; an
// encoder failure is returned as is.
func (r *Run) ScoreDomain(ctx context.Context, domain types.Domain, resp types.UserResponse) (types.DomainScoreResult, error) {
	p := &r.scorer.profile
	result := types.DomainScoreResult{DomainID: domain.ID, DomainName: domain.Name}

	if resp.SelfRating < 0 || resp.SelfRating > types.MaxSelfRating {
		return result, &normalize.MalformedResponseError{
			DomainID: domain.ID,
			Field:    "self_rating",
			Reason:   fmt.Sprintf("rating %d outside 0..%d", resp.SelfRating, types.MaxSelfRating),
		}
	}
	if resp.DomainID != 0 && resp.DomainID != domain.ID {
		return result, &normalize.MalformedResponseError{
			DomainID: domain.ID,
			Field:    "domain_id",
			Reason:   fmt.Sprintf("response belongs to domain %d", resp.DomainID),
		}
	}

	ids := r.scorer.comps.CompetencyIDsIn(domain.ID)

	// 1. Semantic evidence in free text
	semantic, detected, err := r.semantic(ctx, ids, resp.FreeText)
	if err != nil {
		return result, err
	}

	// 2. Self-rating
	selfRating := float64(resp.SelfRating) / types.MaxSelfRating

	// 3. Tool coverage
	tools := r.scorer.toolsScore(domain.ID, resp.Tools, resp.FreeText)

	// 4. Checklist or experience narrative
	mode := p.Checklist.Mode
	if mode == ChecklistAuto {
		mode = types.ChecklistCount
		if strings.TrimSpace(resp.Narrative) != "" {
			mode = types.ChecklistNarrative
		}
	}
	var checklist float64
	if mode == types.ChecklistNarrative {
		checklist, err = r.narrative(ctx, ids, resp.Narrative)
		if err != nil {
			return result, err
		}
	} else {
		checklist = r.scorer.checklistScore(resp.Tasks)
	}

	result.SemanticScore = semantic
	result.SelfRatingScore = selfRating
	result.ToolsScore = tools
	result.ChecklistScore = checklist
	result.ChecklistMode = mode
	result.Detected = detected
	result.Score = clamp01(p.Weights.Semantic*semantic +
		p.Weights.SelfRating*selfRating +
		p.Weights.Tools*tools +
		p.Weights.Checklist*checklist)

	return result, nil
}

func (r *Run) encode(ctx context.Context, text string) (embedding.Vector, error) {
	text = strings.TrimSpace(text)
	if v, ok := r.memo[text]; ok {
		return v, nil
	}
	v, err := r.scorer.index.Encode(ctx, text)
	if err != nil {
		return nil, err
	}
	r.memo[text] = v
	return v, nil
}

// semantic averages the strongest similarities above the detection threshold.
func (r *Run) semantic(ctx context.Context, ids []string, text string) (float64, []types.DetectedCompetency, error) {
	if strings.TrimSpace(text) == "" || len(ids) == 0 {
		return 0, nil, nil
	}
	vec, err := r.encode(ctx, text)
	if err != nil {
		return 0, nil, err
	}
	if len(vec) == 0 {
		return 0, nil, nil
	}

	p := &r.scorer.profile
	sims := r.scorer.index.Similarities(vec, ids)
	detected := make([]types.DetectedCompetency, 0)
	for i, sim := range sims {
		if sim <= p.Threshold {
			continue
		}
		comp, _ := r.scorer.comps.Competency(ids[i])
		detected = append(detected, types.DetectedCompetency{
			CompetencyID: ids[i],
			Name:         comp.Name,
			Similarity:   sim,
		})
	}
	if len(detected) == 0 {
		return 0, detected, nil
	}

	// ties keep catalog order
	sort.SliceStable(detected, func(i, j int) bool {
		return detected[i].Similarity > detected[j].Similarity
	})

	top := detected[:min(p.TopN, len(detected))]
	sum := 0.0
	for _, d := range top {
		sum += d.Similarity
	}
	return clamp01(sum / float64(len(top))), detected, nil
}

// narrative blends the semantic quality of an experience narrative with its length.
func (r *Run) narrative(ctx context.Context, ids []string, text string) (float64, error) {
	settings := r.scorer.profile.Checklist
	words := len(strings.Fields(text))
	if words == 0 || words < settings.MinWords {
		return 0, nil
	}

	quality := 0.0
	if len(ids) > 0 {
		vec, err := r.encode(ctx, text)
		if err != nil {
			return 0, err
		}
		sims := r.scorer.index.Similarities(vec, ids)
		sort.Sort(sort.Reverse(sort.Float64Slice(sims)))
		top := sims[:min(settings.TopN, len(sims))]
		for _, s := range top {
			quality += s
		}
		quality /= float64(len(top))
	}

	length := min(float64(words)/settings.FullLengthWords, 1.0)
	return clamp01(settings.SemanticShare*quality + (1-settings.SemanticShare)*length), nil
}

// toolsScore counts the domain-relevant selected tools. With keyword detection
// enabled, tools named in free text add to a non-empty selection.
func (s *Scorer) toolsScore(domainID int, selected []string, freeText string) float64 {
	p := &s.profile

	if len(selected) == 0 || s.allSentinels(selected) {
		return 0
	}

	seen := make(map[string]bool)
	count := 0
	add := func(tool string) {
		if !seen[tool] {
			seen[tool] = true
			count++
		}
	}

	for _, tool := range selected {
		tool = strings.TrimSpace(tool)
		if tool == "" || p.IsSentinel(tool) {
			continue
		}
		if s.relevant(tool, domainID) {
			add(tool)
		}
	}

	if p.Tools.DetectInText {
		if text := wordText(freeText); text != "" {
			for _, tool := range s.keywordTools {
				if seen[tool] || !s.relevant(tool, domainID) {
					continue
				}
				for _, kw := range p.Tools.Keywords[tool] {
					if phrase := wordText(kw); phrase != "" && strings.Contains(text, phrase) {
						add(tool)
						break
					}
				}
			}
		}
	}

	if count == 0 {
		return 0
	}
	return min(float64(count)/p.ExpectedTools(domainID), 1.0)
}

// wordText lower-cases s and rejoins its letter and digit runs with single
// spaces, padded on both ends so phrases match on word boundaries only.
func wordText(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(fields) == 0 {
		return ""
	}
	return " " + strings.Join(fields, " ") + " "
}

func (s *Scorer) relevant(tool string, domainID int) bool {
	domains, mapped := s.profile.Tools.Relevance[tool]
	if !mapped {
		return s.profile.Tools.CountUnmappedTools
	}
	for _, d := range domains {
		if d == domainID {
			return true
		}
	}
	return false
}

func (s *Scorer) allSentinels(items []string) bool {
	for _, item := range items {
		if !s.profile.IsSentinel(item) {
			return false
		}
	}
	return true
}

// checklistScore counts checked items other than "none" answers.
func (s *Scorer) checklistScore(tasks []string) float64 {
	n := 0
	for _, t := range tasks {
		if strings.TrimSpace(t) != "" && !s.profile.IsSentinel(t) {
			n++
		}
	}
	return min(float64(n)/s.profile.Checklist.Denominator, 1.0)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
