package narrative

import (
	"context"
	"time"

	"github.com/jonathan/competency-mapper/internal/logging"
	"github.com/jonathan/competency-mapper/internal/types"
)

// DefaultTimeout bounds one generator call.
const DefaultTimeout = 30 * time.Second

// Source tells where a narrative came from.
type Source string

const (
	SourceCache     Source = "cache"
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

// Result is one narrative.
type Result struct {
	Kind   Kind   `json:"kind"`
	Text   string `json:"text"`
	Source Source `json:"source"`
}

// modeler is implemented by generators that can name their model.
type modeler interface {
	Model(kind Kind) string
}

// Service serves narratives from the cache, the generator, or canned text.
// It never fails: generator and cache errors are logged and replaced by the
// fallback text.
type Service struct {
	generator Generator
	cache     *Cache
	timeout   time.Duration
	logger    *logging.Logger
	now       func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithTimeout bounds each generator call.
func WithTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *logging.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService builds a Service. generator and cache may both be nil: without a
// generator every narrative is the fallback, without a cache nothing is stored.
func NewService(generator Generator, cache *Cache, opts ...ServiceOption) *Service {
	s := &Service{
		generator: generator,
		cache:     cache,
		timeout:   DefaultTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Narrate returns the narrative of kind for a report.
func (s *Service) Narrate(ctx context.Context, kind Kind, r *types.ProfileReport) Result {
	d := NewDigest(r)
	key := d.Signature(kind)
	log := s.logger.With("kind", string(kind), "signature", key[:12])

	if s.cache != nil {
		entry, ok, err := s.cache.Get(key)
		switch {
		case err != nil:
			log.Warn("narrative cache unreadable", "error", err)
		case ok:
			log.Debug("narrative served from cache")
			return Result{Kind: kind, Text: entry.Text, Source: SourceCache}
		}
	}

	if s.generator == nil {
		return Result{Kind: kind, Text: Fallback(kind, d), Source: SourceFallback}
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	text, err := s.generator.Generate(genCtx, kind, d)
	if err != nil {
		log.Warn("narrative generation failed, using fallback", "error", err)
		return Result{Kind: kind, Text: Fallback(kind, d), Source: SourceFallback}
	}

	if s.cache != nil {
		entry := Entry{Kind: kind, Text: text, CreatedAt: s.now().UTC()}
		if m, ok := s.generator.(modeler); ok {
			entry.Model = m.Model(kind)
		}
		if err := s.cache.Put(key, entry); err != nil {
			log.Warn("failed to cache narrative", "error", err)
		}
	}
	return Result{Kind: kind, Text: text, Source: SourceGenerated}
}

// NarrateAll returns every narrative kind for a report.
func (s *Service) NarrateAll(ctx context.Context, r *types.ProfileReport) []Result {
	out := make([]Result, 0, len(Kinds))
	for _, kind := range Kinds {
		out = append(out, s.Narrate(ctx, kind, r))
	}
	return out
}
