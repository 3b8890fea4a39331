package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/competency-mapper/internal/types"
)

// DefaultListLimit caps ListReports when no limit is given.
const DefaultListLimit = 20

// ReportSummary is one row of the report listing.
type ReportSummary struct {
	ID            uuid.UUID `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	Profile       string    `json:"profile"`
	CoverageScore float64   `json:"coverage_score"`
	TopJobID      *string   `json:"top_job_id,omitempty"`
	TopJobScore   *float64  `json:"top_job_score,omitempty"`
}

// StoredNarrative is a narrative archived with its report.
type StoredNarrative struct {
	Kind      string    `json:"kind"`
	Source    string    `json:"source"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// summarize extracts the indexed columns of a report.
func summarize(r *types.ProfileReport) ReportSummary {
	s := ReportSummary{
		ID:            r.ID,
		CreatedAt:     r.CreatedAt,
		Profile:       r.Profile,
		CoverageScore: r.CoverageScore,
	}
	if job, ok := r.TopJob(); ok {
		id, score := job.JobID, job.Score
		s.TopJobID = &id
		s.TopJobScore = &score
	}
	return s
}
