package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/competency-mapper/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *types.ProfileReport {
	return &types.ProfileReport{
		ID:            uuid.MustParse("6f1c2b8e-4a51-4d7a-9a55-0d1e6f0c7b11"),
		CreatedAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Profile:       "block-v1",
		CoverageScore: 0.4,
		BlockScores: map[string]types.DomainScoreResult{
			"1": {
				DomainID:        1,
				DomainName:      "Data",
				Score:           0.4,
				SemanticScore:   0.5,
				SelfRatingScore: 0.6,
				ChecklistMode:   types.ChecklistCount,
				Detected:        []types.DetectedCompetency{{CompetencyID: "C001", Name: "SQL", Similarity: 0.5}},
			},
		},
		RecommendedJobs: []types.RecommendedJob{{Rank: 1, JobID: "J01", Title: "Analyst", Score: 48, Description: "d"}},
	}
}

func TestDefaultPath(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 5, 7, 0, time.UTC)
	assert.Equal(t, filepath.Join("responses", "results_20261016_090507.json"), DefaultPath("", now))
	assert.Equal(t, filepath.Join("out", "results_20261016_090507.json"), DefaultPath("out", now))
}

func TestWriteFile_RoundTripAndIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	path := filepath.Join(dir, "report.json")
	r := sampleReport()

	require.NoError(t, WriteFile(path, r))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, WriteFile(path, r))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	loaded, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, r.ID, loaded.ID)
	assert.Equal(t, r.BlockScores, loaded.BlockScores)
	assert.True(t, r.CreatedAt.Equal(loaded.CreatedAt))
}

func TestValidate(t *testing.T) {
	r := sampleReport()
	assert.NoError(t, Validate(r))

	r.CoverageScore = 1.2
	assert.Error(t, Validate(r))
}

func TestReadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0644))
	_, err = ReadFile(bad)
	assert.ErrorContains(t, err, "failed to parse report")
}
