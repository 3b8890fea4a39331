package narrative

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/competency-mapper/internal/llm"
	"github.com/jonathan/competency-mapper/internal/types"
)

func testReport() *types.ProfileReport {
	scores := map[int]float64{1: 0.72, 2: 0.31, 3: 0.05, 4: 0.55, 5: 0.31}
	names := map[int]string{1: "Data Analysis", 2: "ML supervisé", 3: "ML non supervisé", 4: "NLP", 5: "Statistiques"}
	r := &types.ProfileReport{CoverageScore: 0.388, BlockScores: map[string]types.DomainScoreResult{}}
	for id, s := range scores {
		r.BlockScores[types.DomainKey(id)] = types.DomainScoreResult{DomainID: id, DomainName: names[id], Score: s}
	}
	r.RecommendedJobs = []types.RecommendedJob{{Rank: 1, JobID: "J01", Title: "Data Analyst", Score: 71.4}}
	return r
}

type fakeGenerator struct {
	mu    sync.Mutex
	text  string
	err   error
	delay time.Duration
	calls int
}

func (f *fakeGenerator) Generate(ctx context.Context, kind Kind, _ Digest) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text + " " + string(kind), nil
}

func (f *fakeGenerator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestNewDigest(t *testing.T) {
	d := NewDigest(testReport())

	assert.InDelta(t, 0.388, d.Coverage, 1e-9)
	require.Len(t, d.Strengths, 3)
	assert.Equal(t, []int{1, 4, 2}, ids(d.Strengths))
	require.Len(t, d.Weaknesses, 3)
	assert.Equal(t, []int{3, 2, 5}, ids(d.Weaknesses), "ties keep domain order")
	assert.Equal(t, "Data Analyst", d.TargetJob)
	assert.InDelta(t, 71.4, d.TargetScore, 1e-9)
}

func TestNewDigest_SmallReport(t *testing.T) {
	d := NewDigest(&types.ProfileReport{BlockScores: map[string]types.DomainScoreResult{
		"1": {DomainID: 1, Score: 0.2},
	}})
	assert.Len(t, d.Strengths, 1)
	assert.Len(t, d.Weaknesses, 1)
	assert.Empty(t, d.TargetJob)
}

func ids(s []DomainSummary) []int {
	out := make([]int, len(s))
	for i, d := range s {
		out[i] = d.DomainID
	}
	return out
}

func TestSignature(t *testing.T) {
	d := NewDigest(testReport())

	assert.Len(t, d.Signature(KindPlan), 64)
	assert.NotEqual(t, d.Signature(KindPlan), d.Signature(KindBio))
	assert.Equal(t, d.Signature(KindPlan), NewDigest(testReport()).Signature(KindPlan))

	// scores within the same tenth share a signature
	near := testReport()
	res := near.BlockScores["1"]
	res.Score = 0.69
	near.BlockScores["1"] = res
	assert.Equal(t, d.Signature(KindBio), NewDigest(near).Signature(KindBio))

	far := testReport()
	res = far.BlockScores["1"]
	res.Score = 0.9
	far.BlockScores["1"] = res
	assert.NotEqual(t, d.Signature(KindBio), NewDigest(far).Signature(KindBio))

	other := testReport()
	other.RecommendedJobs[0].Title = "ML Engineer"
	assert.NotEqual(t, d.Signature(KindPlan), NewDigest(other).Signature(KindPlan))
}

func TestPrompt(t *testing.T) {
	d := NewDigest(testReport())

	plan, err := Prompt(KindPlan, d)
	require.NoError(t, err)
	assert.Contains(t, plan, "ML non supervisé")
	assert.Contains(t, plan, "Data Analyst")
	assert.Contains(t, plan, "39%")

	bio, err := Prompt(KindBio, d)
	require.NoError(t, err)
	assert.Contains(t, bio, "Data Analysis")
	assert.Contains(t, bio, "71.4%")

	_, err = Prompt("poem", d)
	assert.Error(t, err)
}

func TestFallback(t *testing.T) {
	d := NewDigest(testReport())
	assert.Contains(t, Fallback(KindBio, d), "39%")
	assert.Contains(t, Fallback(KindBio, d), "Data Analyst")
	assert.Contains(t, Fallback(KindPlan, Digest{}), defaultJob)
}

func TestCache_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "narratives.json")
	c := NewCache(path)

	_, ok, err := c.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put("k", Entry{Kind: KindBio, Text: "bio"}))

	reopened := NewCache(path)
	e, ok, err := reopened.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "bio", e.Text)

	n, err := reopened.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestCache_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "narratives.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))

	_, _, err := NewCache(path).Get("k")
	assert.ErrorContains(t, err, "failed to parse narrative cache")
}

func TestService_GeneratesThenServesFromCache(t *testing.T) {
	gen := &fakeGenerator{text: "generated"}
	svc := NewService(gen, NewCache(filepath.Join(t.TempDir(), "c.json")))
	r := testReport()

	first := svc.Narrate(context.Background(), KindPlan, r)
	assert.Equal(t, SourceGenerated, first.Source)
	assert.Equal(t, "generated plan", first.Text)

	second := svc.Narrate(context.Background(), KindPlan, r)
	assert.Equal(t, SourceCache, second.Source)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, 1, gen.Calls())
}

func TestService_FallbackOnFailure(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "c.json"))
	svc := NewService(&fakeGenerator{err: errors.New("quota exceeded")}, cache)

	got := svc.Narrate(context.Background(), KindBio, testReport())
	assert.Equal(t, SourceFallback, got.Source)
	assert.Equal(t, Fallback(KindBio, NewDigest(testReport())), got.Text)

	n, err := cache.Len()
	require.NoError(t, err)
	assert.Zero(t, n, "fallbacks are not cached")
}

func TestService_Timeout(t *testing.T) {
	svc := NewService(&fakeGenerator{text: "late", delay: time.Second}, nil, WithTimeout(10*time.Millisecond))

	got := svc.Narrate(context.Background(), KindPlan, testReport())
	assert.Equal(t, SourceFallback, got.Source)
}

func TestService_NoGenerator(t *testing.T) {
	results := NewService(nil, nil).NarrateAll(context.Background(), testReport())
	require.Len(t, results, 2)
	assert.Equal(t, KindPlan, results[0].Kind)
	assert.Equal(t, KindBio, results[1].Kind)
	for _, r := range results {
		assert.Equal(t, SourceFallback, r.Source)
		assert.NotEmpty(t, r.Text)
	}
}

type fakeClient struct {
	prompt string
	tier   llm.ModelTier
	reply  string
	err    error
}

func (f *fakeClient) GenerateContent(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.prompt, f.tier = prompt, tier
	return f.reply, f.err
}

func (f *fakeClient) GetModel(tier llm.ModelTier) string { return llm.DefaultConfig().GetModel(tier) }

func (f *fakeClient) Close() error { return nil }

func TestLLMGenerator(t *testing.T) {
	client := &fakeClient{reply: "Deux paragraphes."}
	gen := NewLLMGenerator(client)

	text, err := gen.Generate(context.Background(), KindBio, NewDigest(testReport()))
	require.NoError(t, err)
	assert.Equal(t, "Deux paragraphes.", text)
	assert.Equal(t, llm.TierLite, client.tier)
	assert.Contains(t, client.prompt, "Data Analysis")
	assert.Equal(t, "gemini-2.5-flash", gen.Model(KindPlan))

	client.reply = "   "
	_, err = gen.Generate(context.Background(), KindPlan, NewDigest(testReport()))
	assert.ErrorContains(t, err, "empty plan")

	client.err = errors.New("boom")
	_, err = gen.Generate(context.Background(), KindPlan, NewDigest(testReport()))
	assert.ErrorContains(t, err, "failed to generate plan")
}

func TestService_RecordsModel(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "c.json"))
	svc := NewService(NewLLMGenerator(&fakeClient{reply: "plan text"}), cache)
	r := testReport()

	svc.Narrate(context.Background(), KindPlan, r)
	e, ok, err := cache.Get(NewDigest(r).Signature(KindPlan))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "gemini-2.5-flash", e.Model)
	assert.Equal(t, KindPlan, e.Kind)
}
