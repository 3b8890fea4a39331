package catalog

import (
	"github.com/jonathan/competency-mapper/internal/types"
)

// Catalog holds the competency and job tables. It is immutable after Load and
// safe for concurrent readers.
type Catalog struct {
	domains      []types.Domain
	domainByID   map[int]types.Domain
	competencies []types.Competency
	compByID     map[string]int // index into competencies
	byDomain     map[int][]string
	jobs         []types.Job
	jobByID      map[string]int
}

// Domains returns the configured domain set, ordered by id.
func (c *Catalog) Domains() []types.Domain {
	out := make([]types.Domain, len(c.domains))
	copy(out, c.domains)
	return out
}

// Domain returns a domain by id.
func (c *Catalog) Domain(id int) (types.Domain, bool) {
	d, ok := c.domainByID[id]
	return d, ok
}

// Competencies returns every competency in catalog order.
func (c *Catalog) Competencies() []types.Competency {
	out := make([]types.Competency, len(c.competencies))
	copy(out, c.competencies)
	return out
}

// Competency returns a competency by id.
func (c *Catalog) Competency(id string) (types.Competency, bool) {
	idx, ok := c.compByID[id]
	if !ok {
		return types.Competency{}, false
	}
	return c.competencies[idx], true
}

// DomainOf resolves the domain of a competency.
func (c *Catalog) DomainOf(competencyID string) (int, bool) {
	comp, ok := c.Competency(competencyID)
	if !ok {
		return 0, false
	}
	return comp.DomainID, true
}

// CompetencyIDsIn returns the ids of a domain's competencies in catalog order.
func (c *Catalog) CompetencyIDsIn(domainID int) []string {
	ids := c.byDomain[domainID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Jobs returns every job in catalog order.
func (c *Catalog) Jobs() []types.Job {
	out := make([]types.Job, len(c.jobs))
	copy(out, c.jobs)
	return out
}

// Job returns a job by id.
func (c *Catalog) Job(id string) (types.Job, bool) {
	idx, ok := c.jobByID[id]
	if !ok {
		return types.Job{}, false
	}
	return c.jobs[idx], true
}

// Stats summarizes catalog size per domain.
type Stats struct {
	Competencies int
	Jobs         int
	PerDomain    map[int]int
}

// Stats returns table counts.
func (c *Catalog) Stats() Stats {
	per := make(map[int]int, len(c.domains))
	for _, d := range c.domains {
		per[d.ID] = len(c.byDomain[d.ID])
	}
	return Stats{Competencies: len(c.competencies), Jobs: len(c.jobs), PerDomain: per}
}
