// Package analysis orchestrates one profile analysis: normalize the submission,
// score every domain, aggregate coverage and match jobs.
package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/competency-mapper/internal/catalog"
	"github.com/jonathan/competency-mapper/internal/embedding"
	"github.com/jonathan/competency-mapper/internal/logging"
	"github.com/jonathan/competency-mapper/internal/matching"
	"github.com/jonathan/competency-mapper/internal/normalize"
	"github.com/jonathan/competency-mapper/internal/schemas"
	"github.com/jonathan/competency-mapper/internal/scoring"
	"github.com/jonathan/competency-mapper/internal/types"
)

// Progress steps reported through Options.OnProgress.
const (
	StepNormalize = "normalize"
	StepScore     = "score"
	StepCoverage  = "coverage"
	StepMatch     = "match"
)

// ProgressEvent is a progress update during an analysis.
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback receives progress updates.
type ProgressCallback func(event ProgressEvent)

// Options configures an Engine.
type Options struct {
	Profile scoring.Profile
	// TopK is the number of recommended jobs; 0 uses matching.DefaultTopK,
	// a negative value returns every job.
	TopK int
	// Strict aborts on a malformed response instead of zeroing the domain.
	Strict     bool
	Logger     *logging.Logger
	OnProgress ProgressCallback
	// Now is the report clock; defaults to time.Now.
	Now func() time.Time
}

// Engine holds the process-scoped state of the analysis: the catalog and the
// embedding index, both built once and shared read-only between runs.
type Engine struct {
	catalog *catalog.Catalog
	index   *embedding.Index
	scorer  *scoring.Scorer
	matcher *matching.Matcher
	opts    Options
}

// NewEngine builds the embedding index over the catalog and wires the scorer
// and matcher. An encoder failure is returned as *embedding.ModelUnavailableError.
func NewEngine(ctx context.Context, cat *catalog.Catalog, enc embedding.Encoder, opts Options) (*Engine, error) {
	if cat == nil {
		return nil, fmt.Errorf("analysis requires a catalog")
	}
	index, err := embedding.Build(ctx, enc, cat.Competencies())
	if err != nil {
		return nil, err
	}
	opts.Logger.Info("embedding index built",
		"model", index.Model(), "competencies", index.Len(), "dim", index.Dim())
	return newEngine(cat, index, opts)
}

func newEngine(cat *catalog.Catalog, index *embedding.Index, opts Options) (*Engine, error) {
	if opts.Profile.Name == "" {
		p, err := scoring.NewRegistry().Lookup(scoring.DefaultProfile)
		if err != nil {
			return nil, err
		}
		opts.Profile = p
	}
	if opts.TopK == 0 {
		opts.TopK = matching.DefaultTopK
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	scorer, err := scoring.NewScorer(opts.Profile, index, cat)
	if err != nil {
		return nil, err
	}
	return &Engine{
		catalog: cat,
		index:   index,
		scorer:  scorer,
		matcher: matching.New(cat, opts.TopK),
		opts:    opts,
	}, nil
}

// WithProfile returns an engine scoring under p that shares this engine's
// catalog and index.
func (e *Engine) WithProfile(p scoring.Profile) (*Engine, error) {
	opts := e.opts
	opts.Profile = p
	return newEngine(e.catalog, e.index, opts)
}

// Catalog returns the engine's catalog.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Profile returns the active scoring profile.
func (e *Engine) Profile() scoring.Profile { return e.scorer.Profile() }

// AnalyzeDocument validates a raw submission document against the submission
// schema, decodes it and analyzes it.
func (e *Engine) AnalyzeDocument(ctx context.Context, document []byte) (*types.ProfileReport, error) {
	if err := schemas.ValidateSubmission(document); err != nil {
		return nil, fmt.Errorf("invalid submission: %w", err)
	}
	sub, err := normalize.DecodeSubmission(bytes.NewReader(document))
	if err != nil {
		return nil, err
	}
	return e.Analyze(ctx, sub)
}

// Analyze produces the ProfileReport for one submission.
//
// A malformed field zeroes only the affected domain: the domain result carries
// the reason in Error, the report gets a warning and the failure is logged at
// error level. With Options.Strict the run is aborted instead. An encoder
// failure always aborts.
func (e *Engine) Analyze(ctx context.Context, sub *normalize.Submission) (*types.ProfileReport, error) {
	if sub == nil {
		return nil, fmt.Errorf("submission is required")
	}
	log := e.opts.Logger.With("schema", string(sub.Schema), "profile", e.opts.Profile.Name)
	domains := e.catalog.Domains()

	// Step 1: Normalize
	e.emit(StepNormalize, fmt.Sprintf("normalizing %s submission", sub.Schema), nil)
	responses, err := sub.Normalize(domains)
	var malformed normalize.MalformedResponses
	if err != nil && !errors.As(err, &malformed) {
		return nil, fmt.Errorf("failed to normalize submission: %w", err)
	}
	if len(malformed) > 0 && e.opts.Strict {
		return nil, fmt.Errorf("submission rejected: %w", malformed)
	}

	out := &types.ProfileReport{
		ID:          uuid.New(),
		CreatedAt:   e.opts.Now().UTC(),
		Profile:     e.opts.Profile.Name,
		BlockScores: make(map[string]types.DomainScoreResult, len(domains)),
	}
	for _, m := range malformed {
		if m.DomainID == 0 {
			out.Warnings = append(out.Warnings, m.Error())
		}
	}

	// Step 2: Score each domain
	run := e.scorer.NewRun()
	results := make([]types.DomainScoreResult, 0, len(domains))
	byDomain := make(map[int]types.DomainScoreResult, len(domains))
	for _, d := range domains {
		var res types.DomainScoreResult
		if errs := malformed.ForDomain(d.ID); len(errs) > 0 {
			res = e.zeroed(d, reasons(errs))
			log.Error("malformed response, domain zeroed", "domain", d.ID, "error", res.Error)
			out.Warnings = append(out.Warnings, fmt.Sprintf("domain %d zeroed: %s", d.ID, res.Error))
		} else {
			resp, ok := responses[d.ID]
			if !ok {
				resp = types.UserResponse{DomainID: d.ID}
			}
			if resp.IsEmpty() {
				log.Debug("domain unanswered", "domain", d.ID)
			}
			res, err = run.ScoreDomain(ctx, d, resp)
			var mre *normalize.MalformedResponseError
			switch {
			case err == nil:
			case errors.As(err, &mre):
				if e.opts.Strict {
					return nil, fmt.Errorf("submission rejected: %w", err)
				}
				res = e.zeroed(d, mre.Error())
				log.Error("malformed response, domain zeroed", "domain", d.ID, "error", res.Error)
				out.Warnings = append(out.Warnings, fmt.Sprintf("domain %d zeroed: %s", d.ID, res.Error))
			default:
				return nil, fmt.Errorf("failed to score domain %d: %w", d.ID, err)
			}
		}
		log.Debug("domain scored", "domain", d.ID, "score", res.Score,
			"semantic", res.SemanticScore, "self_rating", res.SelfRatingScore,
			"tools", res.ToolsScore, "checklist", res.ChecklistScore, "detected", len(res.Detected))
		results = append(results, res)
		byDomain[d.ID] = res
		out.BlockScores[types.DomainKey(d.ID)] = res
	}
	e.emit(StepScore, fmt.Sprintf("scored %d domains", len(results)), results)

	// Step 3: Coverage
	profile := e.scorer.Profile()
	coverage, err := scoring.Coverage(results, profile.DomainWeight)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate coverage: %w", err)
	}
	out.CoverageScore = coverage
	e.emit(StepCoverage, fmt.Sprintf("coverage %.2f", coverage), coverage)

	// Step 4: Match jobs
	out.RecommendedJobs = e.matcher.Match(byDomain)
	e.emit(StepMatch, fmt.Sprintf("matched %d jobs", len(out.RecommendedJobs)), out.RecommendedJobs)

	log.Info("analysis complete", "report", out.ID.String(), "coverage", coverage,
		"jobs", len(out.RecommendedJobs), "warnings", len(out.Warnings))
	return out, nil
}

func (e *Engine) zeroed(d types.Domain, reason string) types.DomainScoreResult {
	mode := e.opts.Profile.Checklist.Mode
	if mode == scoring.ChecklistAuto {
		mode = types.ChecklistCount
	}
	return types.DomainScoreResult{
		DomainID:      d.ID,
		DomainName:    d.Name,
		ChecklistMode: mode,
		Error:         reason,
	}
}

func (e *Engine) emit(step, message string, content any) {
	if e.opts.OnProgress != nil {
		e.opts.OnProgress(ProgressEvent{Step: step, Message: message, Content: content})
	}
}

func reasons(errs []*normalize.MalformedResponseError) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}
