package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jonathan/competency-mapper/internal/types"
)

const (
	requirementSeparator = ";"
	weightSeparator      = ":"
	defaultWeight        = 1.0
)

// Bounds of the configured domain set.
const (
	MinDomains = 5
	MaxDomains = 9
)

var competencyIDPattern = regexp.MustCompile(`^[A-Za-z][0-9]+$`)

// Column aliases accepted in the competency table.
var (
	colCompetencyID = []string{"competencyid", "competency_id", "id"}
	colDomainID     = []string{"blockid", "block_id", "domainid", "domain_id"}
	colName         = []string{"competency", "name", "competencyname"}
	colDescription  = []string{"description"}
)

// Column aliases accepted in the job table.
var (
	colJobID        = []string{"jobid", "job_id", "id"}
	colJobTitle     = []string{"jobtitle", "job_title", "title"}
	colJobDesc      = []string{"description"}
	colRequirements = []string{"requiredcompetencies", "required_competencies", "competencies"}
)

// LoadFiles reads the competency and job CSV files and builds a Catalog.
func LoadFiles(domains []types.Domain, competenciesPath, jobsPath string) (*Catalog, error) {
	compFile, err := os.Open(competenciesPath)
	if err != nil {
		return nil, &CatalogError{Kind: KindRead, Source: competenciesPath, Cause: err}
	}
	defer func() { _ = compFile.Close() }()

	jobsFile, err := os.Open(jobsPath)
	if err != nil {
		return nil, &CatalogError{Kind: KindRead, Source: jobsPath, Cause: err}
	}
	defer func() { _ = jobsFile.Close() }()

	return Load(domains,
		Source{Name: filepath.Base(competenciesPath), Reader: compFile},
		Source{Name: filepath.Base(jobsPath), Reader: jobsFile},
	)
}

// Source is a named tabular input.
type Source struct {
	Name   string
	Reader io.Reader
}

// Load builds a Catalog from the configured domain set and two CSV sources.
// Any integrity violation is reported as *CatalogError.
func Load(domains []types.Domain, competencies, jobs Source) (*Catalog, error) {
	c := &Catalog{
		domainByID: make(map[int]types.Domain, len(domains)),
		compByID:   make(map[string]int),
		byDomain:   make(map[int][]string),
		jobByID:    make(map[string]int),
	}

	if err := c.setDomains(domains); err != nil {
		return nil, err
	}
	if err := c.loadCompetencies(competencies); err != nil {
		return nil, err
	}
	if err := c.loadJobs(jobs); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Catalog) setDomains(domains []types.Domain) error {
	if len(domains) == 0 {
		return &CatalogError{Kind: KindEmpty, Source: "domains", Value: "no domains configured"}
	}
	if len(domains) < MinDomains || len(domains) > MaxDomains {
		return &CatalogError{Kind: KindDomainCount, Source: "domains",
			Value: fmt.Sprintf("%d domains configured, want %d to %d", len(domains), MinDomains, MaxDomains)}
	}
	for _, d := range domains {
		if d.ID <= 0 {
			return &CatalogError{Kind: KindMalformedID, Source: "domains", Value: strconv.Itoa(d.ID)}
		}
		if _, exists := c.domainByID[d.ID]; exists {
			return &CatalogError{Kind: KindDuplicateID, Source: "domains", Value: strconv.Itoa(d.ID)}
		}
		c.domainByID[d.ID] = d
		c.domains = append(c.domains, d)
	}
	sort.Slice(c.domains, func(i, j int) bool { return c.domains[i].ID < c.domains[j].ID })
	return nil
}

func (c *Catalog) loadCompetencies(src Source) error {
	rows, hdr, err := readTable(src)
	if err != nil {
		return err
	}

	idCol, err := hdr.require(src.Name, colCompetencyID)
	if err != nil {
		return err
	}
	domainCol, err := hdr.require(src.Name, colDomainID)
	if err != nil {
		return err
	}
	nameCol, err := hdr.require(src.Name, colName)
	if err != nil {
		return err
	}
	descCol, err := hdr.require(src.Name, colDescription)
	if err != nil {
		return err
	}

	idWidth := 0
	for i, row := range rows {
		rowNum := i + 1
		id := cell(row, idCol)
		if !competencyIDPattern.MatchString(id) {
			return &CatalogError{Kind: KindMalformedID, Source: src.Name, Row: rowNum, Value: id}
		}
		if idWidth == 0 {
			idWidth = len(id)
		} else if len(id) != idWidth {
			return &CatalogError{
				Kind:   KindMalformedID,
				Source: src.Name,
				Row:    rowNum,
				Value:  id,
				Cause:  fmt.Errorf("expected width %d", idWidth),
			}
		}
		if _, exists := c.compByID[id]; exists {
			return &CatalogError{Kind: KindDuplicateID, Source: src.Name, Row: rowNum, Value: id}
		}

		rawDomain := cell(row, domainCol)
		domainID, err := strconv.Atoi(rawDomain)
		if err != nil {
			return &CatalogError{Kind: KindUnknownDomain, Source: src.Name, Row: rowNum, Value: rawDomain, Cause: err}
		}
		if _, ok := c.domainByID[domainID]; !ok {
			return &CatalogError{Kind: KindUnknownDomain, Source: src.Name, Row: rowNum, Value: rawDomain}
		}

		c.compByID[id] = len(c.competencies)
		c.competencies = append(c.competencies, types.Competency{
			ID:          id,
			Name:        cell(row, nameCol),
			DomainID:    domainID,
			Description: cell(row, descCol),
		})
		c.byDomain[domainID] = append(c.byDomain[domainID], id)
	}

	if len(c.competencies) == 0 {
		return &CatalogError{Kind: KindEmpty, Source: src.Name, Value: "no competencies"}
	}
	return nil
}

func (c *Catalog) loadJobs(src Source) error {
	rows, hdr, err := readTable(src)
	if err != nil {
		return err
	}

	idCol, err := hdr.require(src.Name, colJobID)
	if err != nil {
		return err
	}
	titleCol, err := hdr.require(src.Name, colJobTitle)
	if err != nil {
		return err
	}
	reqCol, err := hdr.require(src.Name, colRequirements)
	if err != nil {
		return err
	}
	descCol := hdr.find(colJobDesc)

	for i, row := range rows {
		rowNum := i + 1
		id := cell(row, idCol)
		if id == "" {
			return &CatalogError{Kind: KindMalformedID, Source: src.Name, Row: rowNum, Value: id}
		}
		if _, exists := c.jobByID[id]; exists {
			return &CatalogError{Kind: KindDuplicateID, Source: src.Name, Row: rowNum, Value: id}
		}

		reqs, err := c.parseRequirements(src.Name, rowNum, cell(row, reqCol))
		if err != nil {
			return err
		}

		c.jobByID[id] = len(c.jobs)
		c.jobs = append(c.jobs, types.Job{
			ID:           id,
			Title:        cell(row, titleCol),
			Description:  cell(row, descCol),
			Requirements: reqs,
		})
	}
	return nil
}

// parseRequirements parses "C001;C002:2;C003" into weighted requirements.
func (c *Catalog) parseRequirements(source string, row int, raw string) ([]types.Requirement, error) {
	var reqs []types.Requirement
	seen := make(map[string]bool)

	for _, entry := range strings.Split(raw, requirementSeparator) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		id, weight := entry, defaultWeight
		if idx := strings.Index(entry, weightSeparator); idx >= 0 {
			id = strings.TrimSpace(entry[:idx])
			rawWeight := strings.TrimSpace(entry[idx+1:])
			w, err := strconv.ParseFloat(rawWeight, 64)
			if err != nil || w <= 0 {
				if err == nil {
					err = errors.New("weight must be positive")
				}
				return nil, &CatalogError{Kind: KindMalformedWeight, Source: source, Row: row, Value: entry, Cause: err}
			}
			weight = w
		}

		if _, ok := c.compByID[id]; !ok {
			return nil, &CatalogError{Kind: KindDanglingReference, Source: source, Row: row, Value: id}
		}
		if seen[id] {
			return nil, &CatalogError{Kind: KindDuplicateID, Source: source, Row: row, Value: id}
		}
		seen[id] = true

		reqs = append(reqs, types.Requirement{CompetencyID: id, Weight: weight})
	}
	return reqs, nil
}

type header map[string]int

func (h header) find(aliases []string) int {
	for _, alias := range aliases {
		if idx, ok := h[alias]; ok {
			return idx
		}
	}
	return -1
}

func (h header) require(source string, aliases []string) (int, error) {
	idx := h.find(aliases)
	if idx < 0 {
		return -1, &CatalogError{Kind: KindMissingColumn, Source: source, Value: aliases[0]}
	}
	return idx, nil
}

// readTable reads a CSV source, returning data rows and a normalized header index.
func readTable(src Source) ([][]string, header, error) {
	r := csv.NewReader(src.Reader)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, &CatalogError{Kind: KindRead, Source: src.Name, Cause: err}
	}
	if len(records) == 0 {
		return nil, nil, &CatalogError{Kind: KindEmpty, Source: src.Name, Value: "missing header"}
	}

	h := make(header, len(records[0]))
	for i, name := range records[0] {
		name = strings.TrimPrefix(name, "\ufeff")
		h[strings.ToLower(strings.TrimSpace(name))] = i
	}

	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	return rows, h, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
