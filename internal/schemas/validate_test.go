package schemas

import (
	"os"
	"path/filepath"
	"testing"

	embedded "github.com/jonathan/competency-mapper/schemas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validReport = `{
	"id": "6f1c2b8e-4a51-4d7a-9a55-0d1e6f0c7b11",
	"created_at": "2026-03-01T10:00:00Z",
	"profile": "block-v1",
	"coverage_score": 0.42,
	"block_scores": {
		"1": {
			"domain_id": 1,
			"domain_name": "Data",
			"score": 0.5,
			"semantic_score": 0.6,
			"self_rating_score": 0.8,
			"tools_score": 0.33,
			"checklist_score": 0.2,
			"checklist_mode": "count",
			"detected_competencies": [{"competency_id": "C001", "name": "SQL", "similarity": 0.61}]
		}
	},
	"recommended_jobs": [
		{"rank": 1, "job_id": "J01", "title": "Analyst", "score": 71.5, "description": "Reports"}
	]
}`

func TestValidateReport_Valid(t *testing.T) {
	assert.NoError(t, ValidateReport([]byte(validReport)))
}

func TestValidateReport_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "coverage above one", doc: `{"id":"x","created_at":"2026-03-01T10:00:00Z","profile":"p","coverage_score":1.5,"block_scores":{},"recommended_jobs":[]}`},
		{name: "missing block scores", doc: `{"id":"x","created_at":"2026-03-01T10:00:00Z","profile":"p","coverage_score":0.5,"recommended_jobs":[]}`},
		{name: "non numeric domain key", doc: `{"id":"x","created_at":"2026-03-01T10:00:00Z","profile":"p","coverage_score":0.5,"block_scores":{"bloc1":{}},"recommended_jobs":[]}`},
		{name: "job score above hundred", doc: `{"id":"x","created_at":"2026-03-01T10:00:00Z","profile":"p","coverage_score":0.5,"block_scores":{},"recommended_jobs":[{"rank":1,"job_id":"J","title":"t","score":120,"description":""}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReport([]byte(tt.doc))
			require.Error(t, err)
			validationErr, ok := err.(*ValidationError)
			require.True(t, ok, "error should be ValidationError type, got %T", err)
			assert.Equal(t, embedded.ProfileReport, validationErr.Schema)
			assert.Greater(t, len(validationErr.Errors), 0)
		})
	}
}

func TestValidateSubmission(t *testing.T) {
	assert.NoError(t, ValidateSubmission([]byte(`{"schema": "block", "responses": {"bloc1": {"q1_likert": 9}}}`)),
		"field-level checks are left to the normalizer")
	assert.NoError(t, ValidateSubmission([]byte(`{"responses": {}}`)))

	for _, doc := range []string{
		`{"schema": "legacy", "responses": {}}`,
		`{"schema": "block"}`,
		`{"responses": []}`,
		`{"responses": {}, "extra": 1}`,
	} {
		err := ValidateSubmission([]byte(doc))
		_, ok := err.(*ValidationError)
		assert.True(t, ok, "doc %s: got %v", doc, err)
	}
}

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("nope.schema.json", []byte(`{}`))
	_, ok := err.(*SchemaLoadError)
	assert.True(t, ok)
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(path, []byte(validReport), 0644))

	assert.NoError(t, ValidateFile(embedded.ProfileReport, path))

	err := ValidateFile(embedded.ProfileReport, filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestValidateJSONString_Invalid(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"}
		}
	}`

	assert.NoError(t, ValidateJSONString(schemaContent, `{"name": "test"}`))

	err := ValidateJSONString(schemaContent, `{"age": 30}`)
	require.Error(t, err)
	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Equal(t, "(root)", validationErr.Errors[0].Field)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Schema: "x.schema.json",
		Errors: []FieldError{
			{Field: "name", Message: "is required"},
			{Field: "age", Message: "must be a number"},
		},
	}

	errorMsg := err.Error()
	assert.Contains(t, errorMsg, "x.schema.json")
	assert.Contains(t, errorMsg, "name")
	assert.Contains(t, errorMsg, "age")
}
