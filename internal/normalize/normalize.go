// Package normalize converts raw questionnaire submissions into one canonical
// UserResponse per domain. Each questionnaire layout has its own Normalizer.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/competency-mapper/internal/types"
)

// Schema names a questionnaire layout.
type Schema string

const (
	// SchemaBlock nests answers per domain under "bloc<N>".
	SchemaBlock Schema = "block"
	// SchemaQuestion flattens the block numbering into top-level "q<n>_<kind>" keys.
	SchemaQuestion Schema = "question"
	// SchemaAdaptive keys ratings and narratives by domain name.
	SchemaAdaptive Schema = "adaptive"
)

// Schemas lists every supported layout.
var Schemas = []Schema{SchemaBlock, SchemaQuestion, SchemaAdaptive}

// Normalizer extracts per-domain responses from one questionnaire layout.
// Missing keys yield empty values. Wrong-typed fields are returned as
// MalformedResponses alongside the responses that could be read.
type Normalizer interface {
	Schema() Schema
	Normalize(raw map[string]any, domains []types.Domain) (map[int]types.UserResponse, error)
}

// ForSchema returns the Normalizer for a layout.
func ForSchema(s Schema) (Normalizer, error) {
	switch s {
	case SchemaBlock:
		return Block{}, nil
	case SchemaQuestion:
		return Question{}, nil
	case SchemaAdaptive:
		return Adaptive{}, nil
	default:
		return nil, fmt.Errorf("unknown submission schema %q", s)
	}
}

var (
	blockKeyPattern    = regexp.MustCompile(`^bloc(\d+)$`)
	questionKeyPattern = regexp.MustCompile(`^q(\d+)_([a-z_]+)$`)
	adaptiveKeys       = []string{"q1_parcours", "q2_domaines", "q3_niveaux", "q4_outils", "q5_experiences"}
)

// Detect guesses the layout of a submission that does not name one.
func Detect(raw map[string]any) Schema {
	for _, k := range adaptiveKeys {
		if _, ok := raw[k]; ok {
			return SchemaAdaptive
		}
	}
	question := false
	for k := range raw {
		if blockKeyPattern.MatchString(k) {
			return SchemaBlock
		}
		if questionKeyPattern.MatchString(k) {
			question = true
		}
	}
	if question {
		return SchemaQuestion
	}
	return SchemaBlock
}

// Submission is a decoded questionnaire payload.
type Submission struct {
	Schema    Schema         `json:"schema,omitempty"`
	Responses map[string]any `json:"responses"`
}

// DecodeSubmission reads a submission document. Numbers are kept as
// json.Number so non-integral ratings can be told apart from integers.
func DecodeSubmission(r io.Reader) (*Submission, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var sub Submission
	if err := dec.Decode(&sub); err != nil {
		return nil, fmt.Errorf("failed to decode submission: %w", err)
	}
	if sub.Responses == nil {
		sub.Responses = map[string]any{}
	}
	if sub.Schema == "" {
		sub.Schema = Detect(sub.Responses)
	}
	if _, err := ForSchema(sub.Schema); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Normalize runs the submission through its layout's Normalizer.
func (s *Submission) Normalize(domains []types.Domain) (map[int]types.UserResponse, error) {
	n, err := ForSchema(s.Schema)
	if err != nil {
		return nil, err
	}
	return n.Normalize(s.Responses, domains)
}

// Block reads the nested "bloc<N>" layout: q<4N-3>_likert, q<4N-2>_text,
// q<4N-1>_tools and any q<4N>_<label> checklist, plus an optional
// "experience" narrative.
type Block struct{}

// Schema implements Normalizer.
func (Block) Schema() Schema { return SchemaBlock }

// Normalize implements Normalizer.
func (Block) Normalize(raw map[string]any, domains []types.Domain) (map[int]types.UserResponse, error) {
	out := make(map[int]types.UserResponse, len(domains))
	var errs MalformedResponses

	for _, d := range domains {
		f := &fieldReader{domainID: d.ID}
		resp := types.UserResponse{DomainID: d.ID}

		key := fmt.Sprintf("bloc%d", d.ID)
		block := f.object(key, raw[key])
		if len(f.errs) == 0 {
			for _, field := range sortedKeys(block) {
				v := block[field]
				if field == "experience" {
					resp.Narrative = f.text(key+"."+field, v)
					continue
				}
				n, kind, ok := parseQuestionKey(field)
				if !ok || questionDomain(n) != d.ID {
					continue
				}
				applyQuestion(f, &resp, key+"."+field, kind, v)
			}
		}

		errs = append(errs, f.errs...)
		out[d.ID] = resp
	}
	return out, errOrNil(validateResponses(out, domains, errs))
}

// Question reads the flat "q<n>_<kind>" layout; question n belongs to domain
// ceil(n/4).
type Question struct{}

// Schema implements Normalizer.
func (Question) Schema() Schema { return SchemaQuestion }

// Normalize implements Normalizer.
func (Question) Normalize(raw map[string]any, domains []types.Domain) (map[int]types.UserResponse, error) {
	out := make(map[int]types.UserResponse, len(domains))
	readers := make(map[int]*fieldReader, len(domains))
	for _, d := range domains {
		out[d.ID] = types.UserResponse{DomainID: d.ID}
		readers[d.ID] = &fieldReader{domainID: d.ID}
	}

	for _, field := range sortedKeys(raw) {
		n, kind, ok := parseQuestionKey(field)
		if !ok {
			continue
		}
		domainID := questionDomain(n)
		f, known := readers[domainID]
		if !known {
			continue
		}
		resp := out[domainID]
		applyQuestion(f, &resp, field, kind, raw[field])
		out[domainID] = resp
	}

	var errs MalformedResponses
	for _, d := range domains {
		errs = append(errs, readers[d.ID].errs...)
	}
	return out, errOrNil(validateResponses(out, domains, errs))
}

// Adaptive reads the domain-name keyed layout. Free text and tools are global
// answers shared by every domain; tool relevance is decided by the scorer.
type Adaptive struct{}

// Schema implements Normalizer.
func (Adaptive) Schema() Schema { return SchemaAdaptive }

// Normalize implements Normalizer.
func (Adaptive) Normalize(raw map[string]any, domains []types.Domain) (map[int]types.UserResponse, error) {
	global := &fieldReader{}
	freeText := global.text("q1_parcours", raw["q1_parcours"])
	global.list("q2_domaines", raw["q2_domaines"])
	tools := global.list("q4_outils", raw["q4_outils"])
	ratings := global.object("q3_niveaux", raw["q3_niveaux"])
	narratives := global.object("q5_experiences", raw["q5_experiences"])

	resolve := domainResolver(domains)
	out := make(map[int]types.UserResponse, len(domains))
	readers := make(map[int]*fieldReader, len(domains))
	for _, d := range domains {
		out[d.ID] = types.UserResponse{
			DomainID: d.ID,
			FreeText: freeText,
			Tools:    append([]string(nil), tools...),
		}
		readers[d.ID] = &fieldReader{domainID: d.ID}
	}

	for _, name := range sortedKeys(ratings) {
		id, ok := resolve(name)
		if !ok {
			continue
		}
		resp := out[id]
		resp.SelfRating = readers[id].rating("q3_niveaux."+name, ratings[name])
		out[id] = resp
	}
	for _, name := range sortedKeys(narratives) {
		id, ok := resolve(name)
		if !ok {
			continue
		}
		resp := out[id]
		resp.Narrative = readers[id].text("q5_experiences."+name, narratives[name])
		out[id] = resp
	}

	// a broken global answer taints every domain
	var errs MalformedResponses
	for _, d := range domains {
		for _, e := range global.errs {
			errs = append(errs, &MalformedResponseError{DomainID: d.ID, Field: e.Field, Reason: e.Reason})
		}
		errs = append(errs, readers[d.ID].errs...)
	}
	return out, errOrNil(validateResponses(out, domains, errs))
}

// domainResolver matches domain names case-insensitively; a decimal id is
// accepted too.
func domainResolver(domains []types.Domain) func(string) (int, bool) {
	byName := make(map[string]int, len(domains)*2)
	for _, d := range domains {
		byName[strings.ToLower(strings.TrimSpace(d.Name))] = d.ID
		byName[strconv.Itoa(d.ID)] = d.ID
	}
	return func(name string) (int, bool) {
		id, ok := byName[strings.ToLower(strings.TrimSpace(name))]
		return id, ok
	}
}

func parseQuestionKey(key string) (int, string, bool) {
	m := questionKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return 0, "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, "", false
	}
	return n, m[2], true
}

func questionDomain(n int) int {
	return (n + 3) / 4
}

// applyQuestion stores one question's answer into resp based on its kind.
func applyQuestion(f *fieldReader, resp *types.UserResponse, field, kind string, v any) {
	switch kind {
	case "likert":
		resp.SelfRating = f.rating(field, v)
	case "text":
		resp.FreeText = f.text(field, v)
	case "tools":
		resp.Tools = appendUnique(resp.Tools, f.list(field, v)...)
	case "experience":
		resp.Narrative = f.text(field, v)
	default:
		// every other kind is a checklist (tasks, competences, algorithmes, ...)
		resp.Tasks = appendUnique(resp.Tasks, f.list(field, v)...)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// validateResponses checks the struct constraints of every response whose
// domain has no field failure yet, and appends what fails.
func validateResponses(out map[int]types.UserResponse, domains []types.Domain, errs MalformedResponses) MalformedResponses {
	for _, d := range domains {
		if len(errs.ForDomain(d.ID)) > 0 {
			continue
		}
		resp := out[d.ID]
		err := resp.Validate()
		if err == nil {
			continue
		}
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			errs = append(errs, &MalformedResponseError{DomainID: d.ID, Field: "response", Reason: err.Error()})
			continue
		}
		for _, fe := range fieldErrs {
			errs = append(errs, &MalformedResponseError{
				DomainID: d.ID,
				Field:    fe.Field(),
				Reason:   fmt.Sprintf("value %v fails %q", fe.Value(), fe.Tag()),
			})
		}
	}
	return errs
}

func errOrNil(errs MalformedResponses) error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}
