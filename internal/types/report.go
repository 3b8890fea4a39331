package types

import (
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ChecklistMode names how the fourth sub-score of a domain was computed.
type ChecklistMode string

const (
	// ChecklistCount scores the number of checked items.
	ChecklistCount ChecklistMode = "count"
	// ChecklistNarrative scores a free-text experience narrative semantically.
	ChecklistNarrative ChecklistMode = "narrative"
)

// DetectedCompetency is a competency evidenced by free text above the detection threshold.
type DetectedCompetency struct {
	CompetencyID string  `json:"competency_id"`
	Name         string  `json:"name"`
	Similarity   float64 `json:"similarity"`
}

// DomainScoreResult is the scoring outcome for one domain.
type DomainScoreResult struct {
	DomainID        int                  `json:"domain_id"`
	DomainName      string               `json:"domain_name"`
	Score           float64              `json:"score"`
	SemanticScore   float64              `json:"semantic_score"`
	SelfRatingScore float64              `json:"self_rating_score"`
	ToolsScore      float64              `json:"tools_score"`
	ChecklistScore  float64              `json:"checklist_score"`
	ChecklistMode   ChecklistMode        `json:"checklist_mode"`
	Detected        []DetectedCompetency `json:"detected_competencies"`
	// Error records why the domain was zeroed, if scoring failed.
	Error string `json:"error,omitempty"`
}

// HasDetected reports whether competencyID was explicitly evidenced in this domain.
func (r DomainScoreResult) HasDetected(competencyID string) bool {
	for _, d := range r.Detected {
		if d.CompetencyID == competencyID {
			return true
		}
	}
	return false
}

// RecommendedJob is one ranked job match. Score is a percentage in [0,100].
type RecommendedJob struct {
	Rank                int      `json:"rank"`
	JobID               string   `json:"job_id"`
	Title               string   `json:"title"`
	Score               float64  `json:"score"`
	Description         string   `json:"description"`
	BoostedCompetencies []string `json:"boosted_competencies,omitempty"`
}

// ProfileReport is the sole artifact of one analysis run.
type ProfileReport struct {
	ID              uuid.UUID                    `json:"id"`
	CreatedAt       time.Time                    `json:"created_at"`
	Profile         string                       `json:"profile"`
	CoverageScore   float64                      `json:"coverage_score"`
	BlockScores     map[string]DomainScoreResult `json:"block_scores"`
	RecommendedJobs []RecommendedJob             `json:"recommended_jobs"`
	Warnings        []string                     `json:"warnings,omitempty"`
}

// DomainKey returns the block_scores key for a domain id.
func DomainKey(domainID int) string {
	return strconv.Itoa(domainID)
}

// Domain returns the result for a domain id.
func (r *ProfileReport) Domain(domainID int) (DomainScoreResult, bool) {
	res, ok := r.BlockScores[DomainKey(domainID)]
	return res, ok
}

// SortedDomains returns the domain results ordered by domain id.
func (r *ProfileReport) SortedDomains() []DomainScoreResult {
	out := make([]DomainScoreResult, 0, len(r.BlockScores))
	for _, res := range r.BlockScores {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DomainID < out[j].DomainID })
	return out
}

// TopJob returns the best-ranked job, if any.
func (r *ProfileReport) TopJob() (RecommendedJob, bool) {
	if len(r.RecommendedJobs) == 0 {
		return RecommendedJob{}, false
	}
	return r.RecommendedJobs[0], true
}
