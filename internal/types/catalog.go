// Package types provides type definitions for structured data used throughout the competency-mapper system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Domain is one of the closed set of competency categories (data analysis, ML, NLP, ...).
type Domain struct {
	ID   int    `json:"id" yaml:"id" validate:"gt=0"`
	Name string `json:"name" yaml:"name" validate:"required"`
}

// Competency is an atomic, catalogued skill.
type Competency struct {
	ID          string `json:"competency_id"`
	Name        string `json:"name"`
	DomainID    int    `json:"domain_id"`
	Description string `json:"description"`
}

// EmbeddingText returns the text encoded for this competency.
func (c Competency) EmbeddingText() string {
	return c.Name + " " + c.Description
}

// Requirement is one weighted competency requirement of a job.
type Requirement struct {
	CompetencyID string  `json:"competency_id"`
	Weight       float64 `json:"weight"`
}

// Job is a catalogued job profile expressed as weighted competency requirements.
type Job struct {
	ID           string        `json:"job_id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Requirements []Requirement `json:"requirements"`
}
