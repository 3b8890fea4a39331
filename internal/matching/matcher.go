// Package matching ranks catalog jobs against a scored competency profile.
package matching

import (
	"sort"

	"github.com/jonathan/competency-mapper/internal/types"
)

const (
	// DefaultTopK is the number of recommended jobs when none is configured.
	DefaultTopK = 3
	// DetectionBoost multiplies the contribution of an explicitly detected competency.
	DetectionBoost = 1.2
)

// Catalog is the part of the catalog the matcher needs.
type Catalog interface {
	Jobs() []types.Job
	DomainOf(competencyID string) (int, bool)
}

// Matcher scores jobs from domain scores. It holds no per-run state.
type Matcher struct {
	catalog Catalog
	topK    int
}

// New returns a Matcher returning the top k jobs; k <= 0 returns every job.
func New(catalog Catalog, k int) *Matcher {
	return &Matcher{catalog: catalog, topK: k}
}

// TopK is the configured result size.
func (m *Matcher) TopK() int {
	return m.topK
}

// Match scores every job and returns the best ones, ranked.
func (m *Matcher) Match(domains map[int]types.DomainScoreResult) []types.RecommendedJob {
	jobs := m.catalog.Jobs()
	ranked := make([]types.RecommendedJob, 0, len(jobs))
	for _, job := range jobs {
		score, boosted := m.scoreJob(job, domains)
		ranked = append(ranked, types.RecommendedJob{
			JobID:               job.ID,
			Title:               job.Title,
			Score:               score,
			Description:         job.Description,
			BoostedCompetencies: boosted,
		})
	}

	// stable: equal scores keep catalog order
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if m.topK > 0 && len(ranked) > m.topK {
		ranked = ranked[:m.topK]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// scoreJob returns the weighted mean contribution of a job's requirements as a
// percentage, plus the ids that received the detection boost.
func (m *Matcher) scoreJob(job types.Job, domains map[int]types.DomainScoreResult) (float64, []string) {
	if len(job.Requirements) == 0 {
		return 0, nil
	}

	var total, weights float64
	var boosted []string
	for _, req := range job.Requirements {
		w := req.Weight
		if w <= 0 {
			w = 1
		}
		weights += w

		domainID, ok := m.catalog.DomainOf(req.CompetencyID)
		if !ok {
			continue
		}
		result, ok := domains[domainID]
		if !ok {
			continue
		}

		contribution := result.Score
		if result.HasDetected(req.CompetencyID) {
			contribution = min(contribution*DetectionBoost, 1.0)
			boosted = append(boosted, req.CompetencyID)
		}
		total += w * contribution
	}

	score := total / weights * 100
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, boosted
}
